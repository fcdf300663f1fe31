package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// MaxJSONBodyBytes caps request bodies decoded by DecodeJSON.
const MaxJSONBodyBytes = 1 << 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	// ALLOW-PANIC: the bundled English translations always register
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// jsonFieldName reports fields by their JSON name so messages match the payload.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// DecodeJSON decodes a body of at most MaxJSONBodyBytes into v.
func DecodeJSON(r *http.Request, v any) error {
	return DecodeJSONLimit(r, v, MaxJSONBodyBytes)
}

// DecodeJSONLimit decodes a body of at most limit bytes into v.
func DecodeJSONLimit(r *http.Request, v any, limit int64) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit)).Decode(v)
}

// ValidateRequest validates the given struct. Types with their own Validate
// method are checked by it instead of struct tags.
func ValidateRequest(v any) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}

// ValidationMessage renders the first failed rule of a validator error in
// English, e.g. "password must be at least 12 characters in length". Other
// errors yield "".
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ""
	}
	return verrs[0].Translate(translator)
}
