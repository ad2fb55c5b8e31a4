package service

import (
	"fmt"
	"time"
)

// Kind — классификация ошибок гейтвея. Ретраи и маршрутизация наверх
// зависят только от Kind, никакого матчинга по строкам.
type Kind int

const (
	// KindTransient — сетевая/временная, можно ретраить с бэкоффом.
	KindTransient Kind = iota
	// KindRejected — биржа осознанно отказала (маржа, фильтры цены).
	// Терминально для намерения, ретраить бессмысленно.
	KindRejected
	// KindRateLimited — 429/-1003, весь гейтвей уходит в кулдаун.
	KindRateLimited
	// KindAmbiguous — запрос ушёл, ответа нет. Ордер мог создаться.
	// НЕ ретраим вслепую — помечаем unknown и ждём реконсиляцию.
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	case KindRateLimited:
		return "rate-limited"
	case KindAmbiguous:
		return "ambiguous"
	}
	return "unknown-kind"
}

// Error — ошибка вызова биржи с классификацией.
type Error struct {
	Kind       Kind
	Code       int           // код биржи, если был ответ
	RetryAfter time.Duration // для KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("gateway %s (code=%d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func transientErr(err error) *Error   { return &Error{Kind: KindTransient, Err: err} }
func ambiguousErr(err error) *Error   { return &Error{Kind: KindAmbiguous, Err: err} }
func rejectedErr(code int, err error) *Error {
	return &Error{Kind: KindRejected, Code: code, Err: err}
}
func rateLimitedErr(code int, after time.Duration, err error) *Error {
	return &Error{Kind: KindRateLimited, Code: code, RetryAfter: after, Err: err}
}

// KindOf — transient по умолчанию: незнакомую ошибку безопаснее ретраить,
// чем терминировать намерение.
func KindOf(err error) Kind {
	if ge, ok := err.(*Error); ok {
		return ge.Kind
	}
	return KindTransient
}

// IsAmbiguous — шорткат для движка: такие ошибки ведут ордер в UNKNOWN.
func IsAmbiguous(err error) bool {
	ge, ok := err.(*Error)
	return ok && ge.Kind == KindAmbiguous
}

// Коды ошибок Binance futures, которые гейтвей понимает сам.
const (
	codeTooManyRequests = -1003
	codeDuplicateOrder  = -4116 // newClientOrderId уже использован
)
