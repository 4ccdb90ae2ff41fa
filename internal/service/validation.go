package service

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/qs3c/listing_sub_server/config"
)

var (
	referencePattern = regexp.MustCompile(`^[A-Z0-9]+$`)
	// 肯尼亚手机号：07/01 开头本地格式，或 254/+254 国际格式
	kePhonePattern = regexp.MustCompile(`^(?:\+?254|0)([17]\d{8})$`)
)

// NewValidator 注册交易码和手机号规则
func NewValidator(cfg *config.PaymentConfig) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("txref", func(fl validator.FieldLevel) bool {
		ref := fl.Field().String()
		if len(ref) < cfg.ReferenceMinLen || len(ref) > cfg.ReferenceMaxLen {
			return false
		}
		return referencePattern.MatchString(ref)
	})

	_ = v.RegisterValidation("ke_phone", func(fl validator.FieldLevel) bool {
		return kePhonePattern.MatchString(compactPhone(fl.Field().String()))
	})

	return v
}

// NormalizePhone 统一为 2547XXXXXXXX / 2541XXXXXXXX
func NormalizePhone(phone string) (string, bool) {
	m := kePhonePattern.FindStringSubmatch(compactPhone(phone))
	if m == nil {
		return "", false
	}
	return "254" + m[1], true
}

func compactPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
}

// firstValidationError 把 validator 的错误转换为 ValidationError
func firstValidationError(err error, cfg *config.PaymentConfig) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Field: "request", Reason: err.Error()}
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "txref":
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be %d-%d uppercase letters or digits", cfg.ReferenceMinLen, cfg.ReferenceMaxLen)}
	case "ke_phone":
		return &ValidationError{Field: field, Reason: "must be a Kenyan mobile number (07XXXXXXXX, 01XXXXXXXX or 254XXXXXXXXX)"}
	case "oneof":
		return &ValidationError{Field: field, Reason: "must be one of: " + fe.Param()}
	default:
		return &ValidationError{Field: field, Reason: "failed " + fe.Tag()}
	}
}
