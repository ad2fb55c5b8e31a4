package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v2"

	"github.com/spf13/viper"
)

// genconfig собирает эффективный конфиг: configs/values_base.yaml плюс
// оверлей окружения поверх (values_local.yaml или $CONFIG_OVERLAY).
// Результат — configs/values_local.yaml, который читает бот.
const (
	baseConfigName = "values_base"
	outputFile     = "configs/values_effective.yaml"
)

func mergedConfig() (map[string]interface{}, error) {
	base := viper.New()
	base.SetConfigName(baseConfigName)
	base.SetConfigType("yaml")
	base.AddConfigPath("configs")
	if err := base.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read base config")
	}

	overlayName := os.Getenv("CONFIG_OVERLAY")
	if overlayName == "" {
		overlayName = "values_local"
	}
	overlay := viper.New()
	overlay.SetConfigName(overlayName)
	overlay.SetConfigType("yaml")
	overlay.AddConfigPath("configs")
	if err := overlay.ReadInConfig(); err != nil {
		// оверлея может не быть — тогда эффективный конфиг равен базе
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.Wrap(err, "read overlay config")
		}
		return base.AllSettings(), nil
	}

	if err := base.MergeConfigMap(overlay.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "merge overlay")
	}
	return base.AllSettings(), nil
}

func writeConfig(settings map[string]interface{}) error {
	bs, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal config to yaml")
	}
	_ = os.Remove(outputFile)
	temp, err := os.Create(outputFile)
	if err != nil {
		return errors.Wrap(err, "create effective config file")
	}
	defer func() { _ = temp.Close() }()
	if _, err = temp.Write(bs); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Wrap(err, "write content")
	}
	return nil
}

func main() {
	settings, err := mergedConfig()
	if err != nil {
		panic(fmt.Errorf("merge config: %w", err))
	}
	if err := writeConfig(settings); err != nil {
		panic(fmt.Errorf("write config: %w", err))
	}
	fmt.Printf("%s complete\n", outputFile)
	fmt.Println("done")
}
