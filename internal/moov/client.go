package moov

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	mhttp "github.com/handiism/moov-downloader/internal/http"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/handiism/moov-downloader/internal/moov/dto"
	"go.uber.org/zap"
)

// BaseURL is the MOOV API root.
const BaseURL = "https://mtg.now.com/moov/api/"

const (
	deviceID      = "fgq7hzlFQE-Gsf7sj9RiC5"
	clientVersion = "3.0.7"
	osVersion     = "10.0.0"

	webUserAgent      = "Mozilla/5.0 (Linux; Android 10.0.0; PIXEL 2XL Build/NOF26V; wv)AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/74.0.3729.136 Mobile Safari/537.36/Moov"
	checkoutUserAgent = "okhttp/4.8.0"

	// PlaylistUserAgent must be sent when fetching a track manifest.
	PlaylistUserAgent = "Moov-Android/1.0/hls-hr"

	loginContentType = "application/xml;charset=UTF-8"
)

// ErrAuthFailed is returned when the login is rejected.
var ErrAuthFailed = errors.New("failed to login")

// Client talks to the MOOV API over a shared session.
//
// The session's cookie jar carries the login, so Authenticate must succeed
// before any other call.
//
// Example usage:
//
//	client := moov.NewClient(mhttp.NewClient(), moov.WithLogger(logger))
//	if err := client.Authenticate(ctx, email, password); err != nil {
//	    return err
//	}
//	album, err := client.Album(ctx, "VAAAAAAAAAAAA", model.LanguageEnglish)
type Client struct {
	http    *mhttp.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client using session for every request.
func NewClient(session *mhttp.Client, opts ...Option) *Client {
	c := &Client{
		http:    session,
		baseURL: BaseURL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the underlying HTTP session.
func (c *Client) Session() *mhttp.Client {
	return c.http
}

// Authenticate logs in. The upstream answers every login with 200; only a
// successful one carries an XML content type.
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: missing email or password", ErrAuthFailed)
	}

	form := url.Values{
		"deviceid":   {deviceID},
		"devicetype": {"Android"},
		"clientver":  {clientVersion},
		"brand":      {"Android"},
		"model":      {"PIXEL+2XL"},
		"os":         {"Android"},
		"osver":      {osVersion},
		"devicename": {"Google+PIXEL+2XL"},
		"connect":    {"WiFi"},
		"lang":       {"en_US"},
		"loginid":    {email},
		"notifyid":   {""},
		"password":   {password},
		"autologin":  {"true"},
	}

	resp, err := c.http.PostForm(ctx, c.baseURL+"user/loginstatuscheck", form, webHeaders())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	if ct := resp.Header.Get("Content-Type"); ct != loginContentType {
		c.logger.Debug("login rejected", zap.String("content_type", ct))
		return ErrAuthFailed
	}
	return nil
}

// Album fetches the album profile and resolves its titles in lang.
func (c *Client) Album(ctx context.Context, id string, lang model.Language) (*model.Album, error) {
	query := url.Values{
		"profileId":  {id},
		"features":   {"24bit"},
		"deviceType": {"phones3"},
		"refType":    {"PAB"},
		"checksum":   {""},
	}

	var resp dto.ProfileResponse
	if err := c.getJSON(ctx, "profile/getProfile", query, webHeaders().Header, &resp); err != nil {
		return nil, err
	}
	if resp.DataObject == nil {
		return nil, fmt.Errorf("album %s: empty profile", id)
	}

	album, err := resp.DataObject.ToAlbum(id, AlbumURL(id), lang)
	if err != nil {
		return nil, fmt.Errorf("album %s: %w", id, err)
	}
	c.logger.Debug("album metadata",
		zap.String("album_id", id),
		zap.String("title", album.Title),
		zap.Int("tracks", len(album.Tracks)))
	return album, nil
}

// FileMeta checks out one track at quality q.
func (c *Client) FileMeta(ctx context.Context, trackID string, q model.Quality) (*model.FileMeta, error) {
	query := url.Values{
		"clientver":      {clientVersion},
		"action":         {"stream"},
		"streamtype":     {"stdhls"},
		"preview":        {"F"},
		"cat":            {"playlist"},
		"pid":            {trackID},
		"isUpSample":     {"false"},
		"osver":          {osVersion},
		"refid":          {""},
		"quality":        {string(q)},
		"devicetype":     {"Android"},
		"connect":        {"WiFi"},
		"reftype":        {""},
		"deviceid":       {deviceID},
		"application":    {"moovnext"},
		"isStudioMaster": {"true"},
	}

	var resp dto.CheckoutResponse
	header := http.Header{"User-Agent": {checkoutUserAgent}}
	if err := c.getJSON(ctx, "content/checkout", query, header, &resp); err != nil {
		return nil, err
	}
	if resp.Result.DataObject == nil {
		return nil, fmt.Errorf("track %s: empty checkout", trackID)
	}

	meta, err := resp.Result.DataObject.ToFileMeta(q)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", trackID, err)
	}
	return meta, nil
}

// Lyrics returns the LRC lyrics of a track, or "" when there are none.
func (c *Client) Lyrics(ctx context.Context, trackID string) (string, error) {
	var resp dto.LyricResponse
	query := url.Values{"pid": {trackID}}
	if err := c.getJSON(ctx, "lyric/getLyric", query, webHeaders().Header, &resp); err != nil {
		return "", err
	}
	if resp.DataObject == nil {
		return "", nil
	}
	return resp.DataObject.Lyric, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, header http.Header, v any) error {
	body, err := c.http.Get(ctx, c.baseURL+endpoint, &mhttp.RequestOptions{
		Header: header,
		Query:  query,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return dto.Decode(endpoint, body, v)
}

func webHeaders() *mhttp.RequestOptions {
	return &mhttp.RequestOptions{Header: http.Header{"User-Agent": {webUserAgent}}}
}
