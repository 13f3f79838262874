package smc

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"SmcDesk/internal/domain/models"
	domsvc "SmcDesk/internal/domain/service"
)

// OutputValidator checks documents against the struct tags of models.SmcOutput.
type OutputValidator struct {
	v *validator.Validate
}

func NewOutputValidator() *OutputValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &OutputValidator{v: v}
}

// Validate returns one message per failing field, e.g. "summary.confidence: lte 100".
func (o *OutputValidator) Validate(out *models.SmcOutput) []string {
	err := o.v.Struct(out)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		msg := path + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += " " + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

var _ domsvc.OutputValidator = (*OutputValidator)(nil)
