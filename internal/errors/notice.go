package errors

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/i18n"
	"google.golang.org/grpc/codes"
)

// Notice is a user-facing message derived from an expected, recoverable condition.
type Notice interface {
	SetTranslationParams(map[string]any) Notice
	GetTranslationParams() map[string]any
	SetStatusCode(int) Notice
	GetStatusCode() int
	SetDetailedError(string)
	GetDetailedError() string
	GetId() string

	Error() string
	Translate(goi18n.TranslateFunc)
	SystemMessage(goi18n.TranslateFunc) string
	ToJson() string
	String() string
}

// Translatable errors carry a message id resolvable through the notice catalogue.
type Translatable interface {
	MessageID() string
	TranslationParams() map[string]any
}

type NoticeError struct {
	params        map[string]any
	Id            string `json:"id"`
	Status        string `json:"status"`
	DetailedError string `json:"detail"`
	StatusCode    int    `json:"code,omitempty"`
}

func (err *NoticeError) SetTranslationParams(params map[string]any) Notice {
	err.params = params
	return err
}

func (err *NoticeError) GetTranslationParams() map[string]any {
	return err.params
}

func (err *NoticeError) SetStatusCode(code int) Notice {
	err.StatusCode = code
	err.Status = http.StatusText(err.StatusCode)
	return err
}

func (err *NoticeError) GetStatusCode() int {
	return err.StatusCode
}

func (err *NoticeError) Error() string {
	return fmt.Sprintf("Notice [%s]: %s, %s", err.Id, err.Status, err.DetailedError)
}

func (err *NoticeError) SetDetailedError(details string) {
	err.DetailedError = details
}

func (err *NoticeError) GetDetailedError() string {
	return err.DetailedError
}

func (err *NoticeError) Translate(T goi18n.TranslateFunc) {
	if T == nil {
		if err.DetailedError == "" {
			err.DetailedError = err.Id
		}
		return
	}

	errText := err.SystemMessage(T)
	if errText != err.Id {
		err.DetailedError = errText
	}
}

func (err *NoticeError) SystemMessage(T goi18n.TranslateFunc) string {
	if err.params == nil {
		return T(err.Id)
	}
	return T(err.Id, err.params)
}

func (err *NoticeError) GetId() string {
	return err.Id
}

func (err *NoticeError) ToJson() string {
	b, _ := json.Marshal(err)
	return string(b)
}

func (err *NoticeError) String() string {
	if err.Id == err.Status && err.DetailedError != "" {
		return err.DetailedError
	}
	return err.Status
}

func NewNotFoundNotice(id, details string) Notice {
	return newNotice(id, details).SetStatusCode(http.StatusNotFound)
}

func NewBadRequestNotice(id, details string) Notice {
	return newNotice(id, details).SetStatusCode(http.StatusBadRequest)
}

func newNotice(id string, details string) Notice {
	return &NoticeError{Id: id, Status: id, DetailedError: details}
}

// NoticeFrom turns a Translatable error in the chain of err into a translated notice.
func NoticeFrom(err error, T goi18n.TranslateFunc) (Notice, bool) {
	var tr Translatable
	if !As(err, &tr) {
		return nil, false
	}
	var n Notice
	if Code(err) == codes.NotFound {
		n = NewNotFoundNotice(tr.MessageID(), err.Error())
	} else {
		n = NewBadRequestNotice(tr.MessageID(), err.Error())
	}
	n.SetTranslationParams(tr.TranslationParams())
	n.Translate(T)
	return n, true
}

const DefaultLanguage = "en-us"

//go:embed i18n/*.json
var translations embed.FS

var loadTranslations = sync.OnceValue(func() error {
	entries, err := translations.ReadDir("i18n")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		data, err := translations.ReadFile(path.Join("i18n", entry.Name()))
		if err != nil {
			return err
		}
		if err := goi18n.ParseTranslationFileBytes(entry.Name(), data); err != nil {
			return fmt.Errorf("parse translations %s: %w", entry.Name(), err)
		}
	}
	return nil
})

// Translator returns the notice translate func for lang, falling back to DefaultLanguage.
func Translator(lang string) (goi18n.TranslateFunc, error) {
	if err := loadTranslations(); err != nil {
		return nil, err
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	return goi18n.Tfunc(lang, DefaultLanguage)
}
