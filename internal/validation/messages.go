package validation

import "fmt"

// messages はフィールドとルールの組み合わせごとのエラーメッセージ。
var messages = map[string]map[string]string{
	"applicationId": {
		"required":  "Application ID is required",
		"snowflake": "Invalid Discord Application ID format",
	},
	"name": {
		"required": "Bot name is required",
		"min":      "Bot name must be at least 2 characters long",
		"max":      "Bot name must be less than 100 characters",
	},
	"description": {
		"required": "Description is required",
		"min":      "Description must be at least 50 characters long",
		"max":      "Description must be less than 1000 characters",
	},
	"tags": {
		"required": "At least one tag is required",
		"min":      "At least one tag is required",
		"max":      "Maximum 10 tags allowed",
	},
	"prefix": {
		"max": "Prefix must be less than 10 characters",
	},
	"website": {
		"httpurl": "Website must be a valid URL",
	},
	"support": {
		"httpurl": "Support server must be a valid URL",
	},
	"github": {
		"httpurl": "GitHub repository must be a valid URL",
	},
	"rating": {
		"required": "Rating must be between 1 and 5",
		"integral": "Rating must be a whole number",
		"gte":      "Rating must be between 1 and 5",
		"lte":      "Rating must be between 1 and 5",
	},
	"comment": {
		"max": "Comment must be less than 1000 characters",
	},
}

// elementMessages はスライス要素に対するルールのメッセージ。
var elementMessages = map[string]string{
	"tags": "Tags must be non-empty and at most 32 characters",
}

// messageFor はフィールドと失敗したルールに対応するメッセージを返す。
// rawFieldがtags[2]のような要素指定の場合は要素単位のメッセージを返す。
func messageFor(rawField, tag string) string {
	field := baseField(rawField)
	if field != rawField {
		if msg, ok := elementMessages[field]; ok {
			return msg
		}
	}
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed on '%s' validation", field, tag)
}
