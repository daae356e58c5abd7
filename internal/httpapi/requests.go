package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/snipvault/snipvault/internal/snippets"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		return strings.TrimSpace(field.String()) != ""
	})
	validate.RegisterValidation("maxlines", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		raw := field.String()
		lines := strings.Count(raw, "\n") + 1
		return lines <= maxLinesFromParam(fl.Param())
	})
}

type SnippetCreateDTO struct {
	Name  string         `json:"name" validate:"required,notblank,max=200"`
	Desc  string         `json:"desc" validate:"max=5000"`
	Code  string         `json:"code" validate:"max=250000,maxlines=5000"`
	Scope snippets.Scope `json:"scope" validate:"omitempty,oneof=global site-css site-footer-js content"`
}

func (r *SnippetCreateDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Name": {
				"required": "name is required",
				"notblank": "name is required",
				"max":      "name is too long",
			},
			"Desc": {
				"max": "description is too long",
			},
			"Code": {
				"max":      "code is too long",
				"maxlines": "code has too many lines",
			},
			"Scope": {
				"oneof": "invalid scope",
			},
		}, "invalid request")
	}
	return nil
}

type APIKeyCreateDTO struct {
	Name  string `json:"name"`
	Scope string `json:"scope" validate:"omitempty,oneof=read read_write admin"`
}

func (r *APIKeyCreateDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Scope": {
				"oneof": "invalid scope",
			},
		}, "invalid request")
	}
	return nil
}

type SyncIDsDTO struct {
	SnippetIDs []int64 `json:"snippet_ids" validate:"required,min=1,max=100"`
}

func (r *SyncIDsDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"SnippetIDs": {
				"required": "snippet_ids is required",
				"min":      "snippet_ids is required",
				"max":      "too many snippet ids",
			},
		}, "invalid request")
	}
	return nil
}

type SyncDownloadDTO struct {
	CloudID int64  `json:"cloud_id" validate:"required,gt=0"`
	Source  string `json:"source" validate:"required,notblank"`
	Action  string `json:"action" validate:"required,notblank"`
	Page    int    `json:"page" validate:"omitempty,gte=1"`
}

func (r *SyncDownloadDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"CloudID": {
				"required": "cloud_id is required",
				"gt":       "cloud_id is required",
			},
			"Source": {
				"required": "source is required",
				"notblank": "source is required",
			},
			"Action": {
				"required": "action is required",
				"notblank": "action is required",
			},
			"Page": {
				"gte": "invalid page",
			},
		}, "invalid request")
	}
	return nil
}

type CloudPushDTO struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Code        string `json:"code" validate:"max=250000"`
	Scope       string `json:"scope" validate:"omitempty,oneof=global site-css site-footer-js content"`
	Revision    int    `json:"revision" validate:"omitempty,gte=1"`
}

func (r *CloudPushDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"ID": {
				"required": "id is required",
				"gt":       "id is required",
			},
			"Name": {
				"required": "name is required",
				"notblank": "name is required",
				"max":      "name is too long",
			},
			"Scope": {
				"oneof": "invalid scope",
			},
		}, "invalid request")
	}
	return nil
}

type AIPromptDTO struct {
	Prompt string `json:"prompt" validate:"required,notblank,max=5000"`
	Type   string `json:"type" validate:"required,oneof=php css js html"`
}

func (r *AIPromptDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Prompt": {
				"required": "prompt is required",
				"notblank": "prompt is required",
				"max":      "prompt is too long",
			},
			"Type": {
				"required": "type is required",
				"oneof":    "invalid snippet type",
			},
		}, "invalid request")
	}
	return nil
}

type AIExplainDTO struct {
	Code  string `json:"code" validate:"required,notblank,max=250000"`
	Field string `json:"field" validate:"required,oneof=code desc tags"`
}

func (r *AIExplainDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Code": {
				"required": "code is required",
				"notblank": "code is required",
				"max":      "code is too long",
			},
			"Field": {
				"required": "field is required",
				"oneof":    "invalid snippet field",
			},
		}, "invalid request")
	}
	return nil
}

type BundleImportDTO struct {
	BundleID  int64  `json:"bundle_id" validate:"omitempty,gt=0"`
	ShareName string `json:"share_name" validate:"omitempty,notblank,max=200"`
}

func (r *BundleImportDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"BundleID": {
				"gt": "invalid bundle id",
			},
			"ShareName": {
				"notblank": "invalid share name",
				"max":      "invalid share name",
			},
		}, "invalid request")
	}
	if r.BundleID == 0 && r.ShareName == "" {
		return errors.New("bundle_id or share_name is required")
	}
	return nil
}

func validationMessage(err error, messages map[string]map[string]string, fallback string) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return errors.New(fallback)
	}
	for _, valErr := range valErrs {
		if fieldMessages, ok := messages[valErr.Field()]; ok {
			if msg, ok := fieldMessages[valErr.Tag()]; ok {
				return errors.New(msg)
			}
			if msg, ok := fieldMessages["*"]; ok {
				return errors.New(msg)
			}
		}
	}
	return errors.New(fallback)
}

func maxLinesFromParam(param string) int {
	n := 0
	for _, r := range param {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
