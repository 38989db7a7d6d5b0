package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mindping-core/internal/models"
)

// HTTPDirectory talks to the directory service's REST API with bearer-token
// auth.
type HTTPDirectory struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPDirectory creates a directory client for baseURL.
func NewHTTPDirectory(baseURL, token string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (d *HTTPDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := d.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID), nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *HTTPDirectory) LookupByUsername(ctx context.Context, username string) (*models.User, error) {
	q := url.Values{"username": {strings.ToLower(strings.TrimSpace(username))}}
	var user models.User
	if err := d.do(ctx, http.MethodGet, "/api/v1/users?"+q.Encode(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *HTTPDirectory) LookupByCode(ctx context.Context, code string) (*models.User, error) {
	q := url.Values{"code": {strings.ToUpper(strings.TrimSpace(code))}}
	var user models.User
	if err := d.do(ctx, http.MethodGet, "/api/v1/users?"+q.Encode(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *HTTPDirectory) PutUser(ctx context.Context, user *models.User) error {
	return d.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(user.ID), user, nil)
}

type friendshipRequest struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`
}

func (d *HTTPDirectory) CreateFriendship(ctx context.Context, userID, friendID string) error {
	return d.do(ctx, http.MethodPost, "/api/v1/friendships",
		friendshipRequest{UserID: userID, FriendID: friendID}, nil)
}

func (d *HTTPDirectory) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	q := url.Values{"user_id": {userID}}
	var resp struct {
		FriendIDs []string `json:"friend_ids"`
	}
	if err := d.do(ctx, http.MethodGet, "/api/v1/friendships?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.FriendIDs, nil
}

type writePingRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Timestamp  int64  `json:"timestamp"`
}

func (d *HTTPDirectory) WritePing(ctx context.Context, senderID, receiverID string, timestamp int64) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := d.do(ctx, http.MethodPost, "/api/v1/pings",
		writePingRequest{SenderID: senderID, ReceiverID: receiverID, Timestamp: timestamp}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (d *HTTPDirectory) MarkPingRead(ctx context.Context, pingID string) error {
	return d.do(ctx, http.MethodPost, "/api/v1/pings/"+url.PathEscape(pingID)+"/read", nil, nil)
}

func (d *HTTPDirectory) PutNotification(ctx context.Context, n *models.Notification) error {
	return d.do(ctx, http.MethodPost, "/api/v1/notifications", n, nil)
}

func (d *HTTPDirectory) Notifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	q := url.Values{"recipient_id": {recipientID}}
	var notifications []models.Notification
	if err := d.do(ctx, http.MethodGet, "/api/v1/notifications?"+q.Encode(), nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (d *HTTPDirectory) DeleteNotification(ctx context.Context, id string) error {
	return d.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil)
}

// do performs one request against the directory API. A 404 maps to
// ErrNotFound; other non-2xx statuses are failures.
func (d *HTTPDirectory) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
