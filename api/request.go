package api

import (
	"encoding/json"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/mail"
)

// EmailRequest is the body of POST /send-email.
type EmailRequest struct {
	ReceiverEmail string `json:"receiver_email" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	BodyText      string `json:"body_text" validate:"required"`
}

// Message converts the request into a relay message. From is left for the
// relay to fill with the configured sender.
func (r EmailRequest) Message() mail.Message {
	return mail.Message{
		To:      mail.Address{Address: r.ReceiverEmail},
		Subject: r.Subject,
		Body:    r.BodyText,
	}
}

// FieldError is one entry of a 422 response.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError lists everything wrong with a request body.
type ValidationError struct {
	Detail []FieldError `json:"detail"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Detail))
	for _, d := range e.Detail {
		msgs = append(msgs, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads and validates an EmailRequest. Any problem with the
// input is reported as *ValidationError.
func decodeRequest(body io.Reader) (EmailRequest, error) {
	var req EmailRequest

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, decodeError(err)
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return req, errors.Wrap(err, "failed to validate request")
		}
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			verr.Detail = append(verr.Detail, FieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  "Field required",
				Type: "missing",
			})
		}
		return req, verr
	}

	return req, nil
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return &ValidationError{Detail: []FieldError{{
				Loc:  []string{"body"},
				Msg:  "Input should be a valid dictionary or object to extract fields from",
				Type: "model_attributes_type",
			}}}
		}
		return &ValidationError{Detail: []FieldError{{
			Loc:  append([]string{"body"}, strings.Split(typeErr.Field, ".")...),
			Msg:  "Input should be a valid string",
			Type: "string_type",
		}}}
	}

	return &ValidationError{Detail: []FieldError{{
		Loc:  []string{"body"},
		Msg:  "JSON decode error",
		Type: "json_invalid",
	}}}
}
