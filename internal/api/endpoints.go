package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/brimoraa/plpchat/internal/models"
)

var ErrInvalidLoginResponse = errors.New("invalid server response: missing token or user data")

// Login exchanges credentials for a bearer token and identity record.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	data, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp models.LoginResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        bytes.NewReader(data),
		contentType: "application/json",
		public:      true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil || resp.User.ID == "" {
		return nil, ErrInvalidLoginResponse
	}
	return &resp, nil
}

func (c *Client) GetChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.getJSON(ctx, "/chats", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// AccessPrivateChat returns the direct conversation with userID, creating it
// on the server if needed.
func (c *Client) AccessPrivateChat(ctx context.Context, userID string) (*models.Chat, error) {
	var chat models.Chat
	if err := c.getJSON(ctx, "/chats/private/"+url.PathEscape(userID), &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) CreateGroupChat(ctx context.Context, name string, userIDs []string) (*models.Chat, error) {
	in := struct {
		Name    string   `json:"name"`
		UserIDs []string `json:"userIds"`
	}{Name: name, UserIDs: userIDs}

	var chat models.Chat
	if err := c.sendJSON(ctx, http.MethodPost, "/chats/group", in, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := c.getJSON(ctx, "/chats/"+url.PathEscape(chatID), &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetMessages returns the ordered history of a conversation.
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.getJSON(ctx, "/messages/"+url.PathEscape(chatID), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID, content string) (*models.Message, error) {
	in := struct {
		ChatID  string `json:"chatId"`
		Content string `json:"content"`
	}{ChatID: chatID, Content: content}

	var msg models.Message
	if err := c.sendJSON(ctx, http.MethodPost, "/messages", in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendAttachment posts content and the file at path as one multipart request.
func (c *Client) SendAttachment(ctx context.Context, chatID, content, path string) (*models.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chatId", chatID); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if content != "" {
		if err := w.WriteField("content", content); err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	var msg models.Message
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/messages",
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.getJSON(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate holds the editable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.sendJSON(ctx, http.MethodPut, "/users/me", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
