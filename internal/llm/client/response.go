package client

import (
	"strings"

	"github.com/tidwall/gjson"

	"contextimage/internal/models"
	"contextimage/internal/utils"
)

// ResponseKind is the variant of a parsed generate response.
type ResponseKind int

const (
	ResponseEmpty ResponseKind = iota
	ResponseImage
	ResponseText
	ResponseError
)

// Response is the tagged form of a generate response body. The first
// matching discriminant decides the variant: inline image, then text
// completion, then error envelope.
type Response struct {
	Kind     ResponseKind
	Image    models.GenerationResult
	Text     string
	ErrorMsg string
}

// ParseResponse discriminates a successful (2xx) response body.
func ParseResponse(body []byte) Response {
	if !gjson.ValidBytes(body) {
		return Response{Kind: ResponseError, ErrorMsg: "Invalid response from API"}
	}
	root := gjson.ParseBytes(body)

	var resp Response
	found := false
	root.Get("responseContent.parts").ForEach(func(_, part gjson.Result) bool {
		data := part.Get("inlineData.data").String()
		if data == "" {
			return true
		}
		mime := part.Get("inlineData.mimeType").String()
		if mime == "" {
			mime = utils.DefaultImageMIME
		}
		resp = Response{Kind: ResponseImage, Image: models.GenerationResult{ImageData: data, MIMEType: mime}}
		found = true
		return false
	})
	if found {
		return resp
	}

	if text := root.Get("choices.0.message.content"); text.Exists() && strings.TrimSpace(text.String()) != "" {
		return Response{Kind: ResponseText, Text: text.String()}
	}

	if msg := errorMessage(root); msg != "" {
		return Response{Kind: ResponseError, ErrorMsg: msg}
	}

	return Response{Kind: ResponseEmpty}
}

// Resolve turns the tagged response into a result or a classified error.
func (r Response) Resolve(status int) (models.GenerationResult, error) {
	switch r.Kind {
	case ResponseImage:
		return r.Image, nil
	case ResponseText:
		return models.GenerationResult{}, NewWrongModalityError()
	case ResponseError:
		return models.GenerationResult{}, NewTransportError(status, r.ErrorMsg, nil)
	default:
		return models.GenerationResult{}, NewNoContentError()
	}
}

// errorMessage extracts error.message, falling back to a top-level message.
func errorMessage(root gjson.Result) string {
	if msg := root.Get("error.message"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	if msg := root.Get("message"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	return ""
}

// ErrorMessageFromBody extracts the nested error message from a failed
// response body, returning "" if the body is not JSON or carries none.
func ErrorMessageFromBody(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return errorMessage(gjson.ParseBytes(body))
}
