package cmd

import (
	"fmt"
	"io"

	"github.com/letsencrypt/validator/v10"

	"github.com/letsencrypt/evcheck/strictyaml"
)

// ConfigValidator pairs a pointer to a config struct with any custom
// validation functions its tags refer to.
type ConfigValidator struct {
	Config     any
	Validators map[string]validator.Func
}

// ValidateYAMLConfig decodes the YAML document in in strictly into
// cv.Config and then checks it against its `validate` struct tags.
func ValidateYAMLConfig(cv *ConfigValidator, in io.Reader) error {
	if cv == nil || cv.Config == nil {
		return fmt.Errorf("config validator and its config must not be nil")
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	err = strictyaml.Unmarshal(b, cv.Config)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	validate := validator.New()
	for tag, v := range cv.Validators {
		err := validate.RegisterValidation(tag, v)
		if err != nil {
			return err
		}
	}
	return validate.Struct(cv.Config)
}
