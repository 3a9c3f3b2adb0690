package apperror

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// membaca tag `binding`, sama seperti Gin
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonTagName)
	return v
}

func jsonTagName(fld reflect.StructField) string {
	// Ambil nama dari tag json (contoh: `json:"parent_id"`)
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Init mendaftarkan nama field json ke validator bawaan Gin.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonTagName)
	}
}

// ValidateStruct runs `binding` tags outside of Gin (service layer, consumers).
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return MapValidationError(err)
	}
	return nil
}
