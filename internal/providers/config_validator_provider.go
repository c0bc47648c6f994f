package providers

import (
	"errors"
	"perimeterd/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidatorInterface interface {
	Validate() error
}

type CnfValidator struct {
	conf *structures.Config
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return errors.New(v.Errors.Error())
	}
	if cv.conf.Reassurance.Tick < 0 || cv.conf.Watchdog.Interval < 0 {
		return errors.New("loop intervals must not be negative")
	}
	return nil
}

func NewCnfValidator(conf *structures.Config) CnfValidatorInterface {
	return &CnfValidator{conf: conf}
}
