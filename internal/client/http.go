package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// HTTPDatastore talks to the listingchat API
type HTTPDatastore struct {
	baseURL string
	token   string
	hc      *http.Client
}

func NewHTTPDatastore(baseURL, token string) *HTTPDatastore {
	return &HTTPDatastore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// do sends body as JSON and decodes a 2xx response into dst
func (d *HTTPDatastore) do(ctx context.Context, method, path string, body, dst any) (int, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rdr = bytes.NewReader(b)
	}
	r, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, rdr)
	if err != nil {
		return 0, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if d.token != "" {
		r.Header.Set("Authorization", "Bearer "+d.token)
	}
	resp, err := d.hc.Do(r)
	if err != nil {
		slog.Debug("request failed", "method", method, "path", path, "error", err)
		return 0, transportError(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, responseError(resp)
	}
	if dst != nil {
		if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return resp.StatusCode, transportError(ctx, err)
		}
	}
	return resp.StatusCode, nil
}

// Register creates an account, validation failures come back as *domain.ErrValidation
func (d *HTTPDatastore) Register(ctx context.Context, u *domain.UserRegister) (*domain.User, error) {
	var res struct {
		User *domain.User `json:"user"`
	}
	if _, err := d.do(ctx, http.MethodPost, registerUser, u, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

// Login exchanges credentials for a bearer token, the datastore uses it from then on
func (d *HTTPDatastore) Login(ctx context.Context, u *domain.UserAuth) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if _, err := d.do(ctx, http.MethodPost, authenticate, u, &res); err != nil {
		var ev *domain.ErrValidation
		if errors.As(err, &ev) {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, ev.Errors)
		}
		return "", err
	}
	d.token = res.Token
	return res.Token, nil
}

// Logout revokes every token of the user, other devices are signed out too
func (d *HTTPDatastore) Logout(ctx context.Context) error {
	if _, err := d.do(ctx, http.MethodDelete, authenticate, nil, nil); err != nil {
		return err
	}
	d.token = ""
	return nil
}

func (d *HTTPDatastore) CurrentUser(ctx context.Context) (*domain.User, error) {
	var res struct {
		User *domain.User `json:"user"`
	}
	if _, err := d.do(ctx, http.MethodGet, getCurrentActiveUser, nil, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (d *HTTPDatastore) EnsureConversation(
	ctx context.Context,
	otherID string,
	listingID *string,
) (*domain.Conversation, bool, error) {
	var res struct {
		Conversation *domain.Conversation `json:"conversation"`
		Created      bool                 `json:"created"`
	}
	in := domain.ConversationEnsure{OtherID: otherID, ListingID: listingID}
	if _, err := d.do(ctx, http.MethodPost, conversationsEndpoint, in, &res); err != nil {
		return nil, false, err
	}
	return res.Conversation, res.Created, nil
}

func (d *HTTPDatastore) GetConversations(
	ctx context.Context,
	f *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("size", strconv.Itoa(f.PageSize))
	var res struct {
		Conversations []*domain.Conversation `json:"conversations"`
		Metadata      *domain.Metadata       `json:"metadata"`
	}
	if _, err := d.do(ctx, http.MethodGet, conversationsEndpoint+"?"+v.Encode(), nil, &res); err != nil {
		return nil, nil, err
	}
	return res.Conversations, res.Metadata, nil
}

func (d *HTTPDatastore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var res struct {
		Conversation *domain.Conversation `json:"conversation"`
	}
	if _, err := d.do(ctx, http.MethodGet, conversationPath(url.PathEscape(id)), nil, &res); err != nil {
		return nil, err
	}
	return res.Conversation, nil
}

func (d *HTTPDatastore) SendMessage(
	ctx context.Context,
	conversationID string,
	m *domain.MessageSend,
) (*domain.Message, error) {
	var res struct {
		Message *domain.Message `json:"message"`
	}
	if _, err := d.do(ctx, http.MethodPost, conversationMessagesPath(url.PathEscape(conversationID)), m, &res); err != nil {
		return nil, err
	}
	return res.Message, nil
}

func (d *HTTPDatastore) FetchMessages(
	ctx context.Context,
	conversationID, after string,
	size int,
) ([]*domain.Message, *domain.CursorMetadata, error) {
	v := url.Values{}
	if after != "" {
		v.Set("after", after)
	}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	path := conversationMessagesPath(url.PathEscape(conversationID))
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var res struct {
		Messages []*domain.Message      `json:"messages"`
		Metadata *domain.CursorMetadata `json:"metadata"`
	}
	if _, err := d.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, nil, err
	}
	if res.Metadata == nil {
		res.Metadata = new(domain.CursorMetadata)
	}
	return res.Messages, res.Metadata, nil
}

func (d *HTTPDatastore) GetUnreadCounts(ctx context.Context) (*domain.UnreadState, error) {
	res := domain.NewUnreadState()
	if _, err := d.do(ctx, http.MethodGet, unreadCounts, nil, res); err != nil {
		return nil, err
	}
	if res.Counts == nil {
		res.Counts = make(domain.UnreadCounts)
	}
	if res.Watermarks == nil {
		res.Watermarks = make(map[string]time.Time)
	}
	return res, nil
}

func (d *HTTPDatastore) MarkRead(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var res struct {
		Updated []*domain.Message `json:"updated"`
	}
	if _, err := d.do(ctx, http.MethodPost, conversationReadPath(url.PathEscape(conversationID)), nil, &res); err != nil {
		return nil, err
	}
	return res.Updated, nil
}

func (d *HTTPDatastore) MarkMessageRead(ctx context.Context, messageID string) (*domain.Message, error) {
	var res struct {
		Message *domain.Message `json:"message"`
	}
	if _, err := d.do(ctx, http.MethodPost, messageReadPath(url.PathEscape(messageID)), nil, &res); err != nil {
		return nil, err
	}
	return res.Message, nil
}

// Healthy reports whether the API and its backing services answer the health check
func (d *HTTPDatastore) Healthy(ctx context.Context) error {
	_, err := d.do(ctx, http.MethodGet, healthz, nil, nil)
	return err
}
