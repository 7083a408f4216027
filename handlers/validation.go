package handlers

import (
	"sync"

	"moveo/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain validation tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("servicetype", func(fl validator.FieldLevel) bool {
			return models.IsKnownServiceType(fl.Field().String())
		})
	})
}
