// Package validation — проверка входящих запросов по OpenAPI-описанию API.
// Документ встроен в бинарник и отдаётся клиентам как есть.
package validation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/scoreteam/internal/api/errors"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec возвращает исходный YAML документа.
func Spec() []byte {
	return specYAML
}

// Validator проверяет тело и path-параметры запроса по операции документа.
// Query-параметры не проверяются: отчёты и списки молча деградируют
// при некорректных значениях.
type Validator struct {
	doc    *openapi3.T
	opts   *openapi3filter.Options
	logger *slog.Logger
}

// NewValidator загружает встроенный документ и проверяет его корректность.
func NewValidator(ctx context.Context, logger *slog.Logger) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI: %w", err)
	}

	return &Validator{
		doc: doc,
		opts: &openapi3filter.Options{
			ExcludeRequestQueryParams: true,
			MultiError:                true,
			// Аутентификация выполняется JWT middleware
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware возвращает HTTP middleware валидации.
// Должен подключаться на уровне конечного маршрута (r.With), чтобы
// chi уже знал итоговый шаблон пути.
func (v *Validator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, ok := v.findRoute(r)
			if !ok {
				// Операции нет в документе — пропускаем без проверки
				v.logger.Debug("Операция не описана в OpenAPI",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    v.opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				details := FieldDetails(err)
				v.logger.Debug("Запрос не прошёл валидацию",
					slog.String("path", r.URL.Path),
					slog.Int("errors", len(details)),
				)
				apierrors.ValidationErrors(w, "Некорректные входные данные", details)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// findRoute сопоставляет запрос с операцией документа по шаблону маршрута chi.
func (v *Validator) findRoute(r *http.Request) (*routers.Route, map[string]string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil, nil, false
	}

	pattern := rctx.RoutePattern()
	if pattern != "/" {
		pattern = strings.TrimSuffix(pattern, "/")
	}

	pathItem := v.doc.Paths.Find(pattern)
	if pathItem == nil {
		return nil, nil, false
	}
	op := pathItem.GetOperation(r.Method)
	if op == nil {
		return nil, nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}

	return &routers.Route{
		Spec:      v.doc,
		Path:      pattern,
		PathItem:  pathItem,
		Method:    r.Method,
		Operation: op,
	}, params, true
}

// FieldDetails разворачивает ошибку openapi3filter в список полей.
func FieldDetails(err error) []apierrors.FieldDetail {
	var details []apierrors.FieldDetail
	collect(err, "", &details)
	if len(details) == 0 {
		details = append(details, apierrors.FieldDetail{Field: "body", Message: err.Error()})
	}
	return details
}

func collect(err error, field string, out *[]apierrors.FieldDetail) {
	if multi, ok := err.(openapi3.MultiError); ok {
		for _, e := range multi {
			collect(e, field, out)
		}
		return
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			field = reqErr.Parameter.Name
		}
		if reqErr.Err != nil {
			before := len(*out)
			collect(reqErr.Err, field, out)
			if len(*out) > before {
				return
			}
		}
		if field == "" {
			field = "body"
		}
		msg := reqErr.Reason
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		*out = append(*out, apierrors.FieldDetail{Field: field, Message: msg})
		return
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		name := strings.Join(schemaErr.JSONPointer(), ".")
		if name == "" {
			name = field
		}
		if name == "" {
			name = "body"
		}
		*out = append(*out, apierrors.FieldDetail{Field: name, Message: schemaErr.Reason})
	}
}
