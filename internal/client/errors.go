package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

var (
	ErrUnauthorized = errors.New("invalid credentials")
	ErrNotLoggedIn  = errors.New("not logged in, run login first")
)

type errorResponse struct {
	Code   string            `json:"code"`
	Error  any               `json:"error"`
	Errors map[string]string `json:"errors"`
}

// responseError turns a non 2xx response into one of the domain sentinels, anything the server could not
// serve is a domain.ErrTransientNetwork
func responseError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s", domain.ErrTransientNetwork, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	var er errorResponse
	if err = json.Unmarshal(body, &er); err != nil {
		return fmt.Errorf("unexpected response %s", resp.Status)
	}
	if er.Code == domain.CodeValidation && len(er.Errors) > 0 {
		ev := domain.NewErrValidation()
		for field, msg := range er.Errors {
			ev.AddError(field, msg)
		}
		return ev
	}
	if err = domain.ErrorFromCode(er.Code); err != nil {
		return err
	}
	return fmt.Errorf("%s: %v", resp.Status, er.Error)
}

// transportError wraps a failed round-trip, the caller giving up is not a network failure
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, getMostNestedError(err))
}

func getMostNestedError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
