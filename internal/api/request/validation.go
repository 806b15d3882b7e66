package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

var validate = validator.New()

var dnsLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func init() {
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("dnslabel", func(fl validator.FieldLevel) bool {
		return dnsLabel.MatchString(fl.Field().String())
	})
	validate.RegisterStructValidation(environmentNameLength, model.ProvisionRequest{})
}

// environmentNameLength rejects requests whose derived environment name
// would exceed the compute platform's limit.
func environmentNameLength(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.ProvisionRequest)
	if req.Name == "" || req.AccountID == "" {
		return
	}
	if len(platform.EnvironmentName(req.Name, req.AccountID)) > platform.MaxEnvironmentNameLength {
		sl.ReportError(req.Name, "name", "Name", "envname", strconv.Itoa(platform.MaxEnvironmentNameLength))
	}
}

// Decode reads a JSON body into v and validates it. Every failure is a
// validation error.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.WrapError(err, model.KindValidation, "invalid JSON")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return model.NewError(model.KindValidation, describe(verrs))
		}
		return model.WrapError(err, model.KindValidation, "validation error")
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	var missing, invalid, parts []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "envname":
			parts = append(parts, fmt.Sprintf("name and accountId exceed %s characters combined", fe.Param()))
		default:
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		parts = append([]string{fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))}, parts...)
	}
	if len(invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid fields: %s (lowercase letters, digits and inner hyphens only)", strings.Join(invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}
