package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

// tokenSkew renews the OAuth token slightly before Zoom expires it.
const tokenSkew = time.Minute

// ErrNotConfigured is returned by a client built without credentials.
var ErrNotConfigured = errors.New("integration not configured")

// ZoomClient creates meetings through Zoom's server-to-server OAuth app.
type ZoomClient struct {
	cfg  config.ZoomConfig
	http *http.Client
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewZoomClient returns nil when the credentials are incomplete.
func NewZoomClient(cfg config.ZoomConfig, hc *http.Client) *ZoomClient {
	if cfg.AccountID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &ZoomClient{cfg: cfg, http: hc, now: time.Now}
}

type zoomToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type zoomMeetingSettings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	MuteUponEntry    bool   `json:"mute_upon_entry"`
	WaitingRoom      bool   `json:"waiting_room"`
	AutoRecording    string `json:"auto_recording"`
}

type zoomMeetingRequest struct {
	Topic     string              `json:"topic"`
	Type      int                 `json:"type"`
	StartTime string              `json:"start_time"`
	Duration  int                 `json:"duration"`
	Timezone  string              `json:"timezone"`
	Settings  zoomMeetingSettings `json:"settings"`
}

type zoomMeeting struct {
	ID       int64  `json:"id"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}

// CreateMeeting schedules a meeting on the account owner's calendar.
func (c *ZoomClient) CreateMeeting(ctx context.Context, req models.MeetingRequest) (*models.Meeting, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var meeting zoomMeeting
	err = do(ctx, c.http, request{
		service: "zoom",
		method:  http.MethodPost,
		url:     strings.TrimRight(c.cfg.APIURL, "/") + "/users/me/meetings",
		headers: map[string]string{"Authorization": "Bearer " + token},
		body: zoomMeetingRequest{
			Topic:     req.Topic,
			Type:      2,
			StartTime: req.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
			Duration:  req.DurationMinutes,
			Timezone:  "UTC",
			Settings: zoomMeetingSettings{
				HostVideo:        true,
				ParticipantVideo: true,
				MuteUponEntry:    true,
				WaitingRoom:      true,
				AutoRecording:    "cloud",
			},
		},
	}, &meeting)
	if err != nil {
		c.dropTokenOn(err)
		return nil, err
	}

	return &models.Meeting{
		ID:      strconv.FormatInt(meeting.ID, 10),
		JoinURL: meeting.JoinURL,
		HostURL: meeting.StartURL,
	}, nil
}

// DeleteMeeting removes a meeting. A meeting that is already gone is not an error.
func (c *ZoomClient) DeleteMeeting(ctx context.Context, id string) error {
	if c == nil {
		return ErrNotConfigured
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	err = do(ctx, c.http, request{
		service: "zoom",
		method:  http.MethodDelete,
		url:     strings.TrimRight(c.cfg.APIURL, "/") + "/meetings/" + url.PathEscape(id),
		headers: map[string]string{"Authorization": "Bearer " + token},
	}, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}
	c.dropTokenOn(err)
	return err
}

func (c *ZoomClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.cfg.AccountID)

	var token zoomToken
	err := do(ctx, c.http, request{
		service: "zoom oauth",
		method:  http.MethodPost,
		url:     c.cfg.OAuthURL,
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		form:    strings.NewReader(form.Encode()),
		basic:   &[2]string{c.cfg.ClientID, c.cfg.ClientSecret},
	}, &token)
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("zoom oauth returned an empty token")
	}

	c.token = token.AccessToken
	c.expires = c.now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenSkew)
	return c.token, nil
}

func (c *ZoomClient) dropTokenOn(err error) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
}
