package apiv1

import (
	"context"
	"errors"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// LoadSpec reads and validates the published OpenAPI document.
func LoadSpec(path string) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	return doc, nil
}

// NewValidator checks JSON request bodies and query parameters against the
// document. Routes the document does not describe pass through untouched.
// Authentication is left to the session middleware.
func NewValidator(doc *openapi3.T) (fiber.Handler, error) {
	// paths in the document are absolute, so servers must not add a prefix
	doc.Servers = nil
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return validatorHandler(router), nil
}

func validatorHandler(router routers.Router) fiber.Handler {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}
	return func(c *fiber.Ctx) error {
		if len(c.Body()) > 0 && !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			return c.Next()
		}

		req, err := adaptor.ConvertRequest(c, false)
		if err != nil {
			log.Warnf("[API] convert request %s: %v", c.Path(), err)
			return c.Next()
		}
		route, params, err := router.FindRoute(req)
		if err != nil {
			return c.Next()
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: params,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.UserContext(), input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": validationMessage(err),
			})
		}
		return c.Next()
	}
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return "invalid parameter " + reqErr.Parameter.Name
		}
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) && len(schemaErr.JSONPointer()) > 0 {
			return "invalid field " + strings.Join(schemaErr.JSONPointer(), ".")
		}
		if reqErr.RequestBody != nil {
			return "invalid request body"
		}
	}
	return "request does not match the API schema"
}
