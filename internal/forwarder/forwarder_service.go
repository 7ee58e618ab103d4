package forwarder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"
)

type Service interface {
	List(ctx context.Context, mode Mode) (Response, error)
	GetByID(ctx context.Context, id string, mode Mode) (Response, error)
	Create(ctx context.Context, req EmployeeRequest, mode Mode) (Response, error)
	Update(ctx context.Context, id string, req EmployeeRequest, mode Mode) (Response, error)
	Delete(ctx context.Context, id string, mode Mode) (Response, error)
}

type service struct {
	client *Client
}

func NewService(client *Client) Service {
	return &service{client: client}
}

func (s *service) List(ctx context.Context, mode Mode) (Response, error) {
	var out []Employee
	return s.send(ctx, mode, Request{Method: http.MethodGet, Path: "/employees"}, &out, func() any { return out })
}

func (s *service) GetByID(ctx context.Context, id string, mode Mode) (Response, error) {
	path, err := employeePath("/employees", id)
	if err != nil {
		return Response{}, err
	}

	var out Employee
	return s.send(ctx, mode, Request{Method: http.MethodGet, Path: path}, &out, func() any { return out })
}

func (s *service) Create(ctx context.Context, req EmployeeRequest, mode Mode) (Response, error) {
	var out Employee
	return s.send(ctx, mode, Request{Method: http.MethodPost, Path: "/employees", Body: req}, &out, func() any { return out })
}

// Update goes to the store's singular /employee/{id} path.
func (s *service) Update(ctx context.Context, id string, req EmployeeRequest, mode Mode) (Response, error) {
	path, err := employeePath("/employee", id)
	if err != nil {
		return Response{}, err
	}

	var out Employee
	return s.send(ctx, mode, Request{Method: http.MethodPut, Path: path, Body: req}, &out, func() any { return out })
}

func (s *service) Delete(ctx context.Context, id string, mode Mode) (Response, error) {
	path, err := employeePath("/employees", id)
	if err != nil {
		return Response{}, err
	}

	var out Employee
	return s.send(ctx, mode, Request{Method: http.MethodDelete, Path: path}, &out, func() any { return out })
}

// send runs the call and, for decoding modes, attaches the decoded value read
// back through data once out has been filled.
func (s *service) send(ctx context.Context, mode Mode, req Request, out any, data func() any) (Response, error) {
	res, err := s.client.Send(ctx, mode, req, out)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Result: res}
	if mode == ModeBody || mode == ModeEntity {
		resp.Data = data()
	}
	return resp, nil
}

// employeePath escapes the raw id segment. Validating it is left to the store
// so that a bad id gets the store's own answer.
func employeePath(prefix string, id string) (string, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return "", fmt.Errorf("encode id path param: %w", err)
	}
	return prefix + "/" + param, nil
}
