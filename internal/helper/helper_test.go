package helper_test

import (
	"testing"

	"breakout_bot/internal/helper"
)

func TestRoundToTick(t *testing.T) {
	if got := helper.RoundDownToTick(101.37, 0.5); got != 101.0 {
		t.Errorf("down: %v", got)
	}
	if got := helper.RoundUpToTick(101.37, 0.5); got != 101.5 {
		t.Errorf("up: %v", got)
	}
	// цена уже на тике не двигается
	if got := helper.RoundDownToTick(101.5, 0.5); got != 101.5 {
		t.Errorf("exact down: %v", got)
	}
	if got := helper.RoundUpToTick(101.5, 0.5); got != 101.5 {
		t.Errorf("exact up: %v", got)
	}
	// нулевой тик = фильтры не загрузились, не трогаем
	if got := helper.RoundDownToTick(101.37, 0); got != 101.37 {
		t.Errorf("zero tick: %v", got)
	}
}

func TestRoundQtyToStep(t *testing.T) {
	if got := helper.RoundQtyToStep(0.0019, 0.001); got != 0.001 {
		t.Errorf("qty: %v", got)
	}
}
