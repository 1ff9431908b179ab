package deriv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"harmonic-go/src/models"
)

const (
	// WSBaseURL Deriv websocket 基础地址
	WSBaseURL = "wss://ws.derivws.com/websockets/v3"
	// DefaultAppID is Deriv's public demo application ID
	DefaultAppID = "1089"
	// WSHandshakeTimeout websocket 握手超时
	WSHandshakeTimeout = 10 * time.Second
	// WSRequestTimeout covers one request/response round trip
	WSRequestTimeout = 15 * time.Second
	// MaxCandlesPerRequest is the API's ticks_history count ceiling
	MaxCandlesPerRequest = 10000
)

// Client is a request/response client for the Deriv websocket API.
// Requests carry a req_id and the reader discards unrelated frames until
// the matching response arrives, so subscription echoes cannot corrupt a
// pending call. One request is in flight at a time.
type Client struct {
	appID    string
	apiToken string
	baseURL  string

	conn      *websocket.Conn
	connMutex sync.Mutex
	nextReqID int64
}

// NewClient builds a client; empty appID falls back to the demo app ID
func NewClient(appID, apiToken string) *Client {
	if appID == "" {
		appID = DefaultAppID
	}
	return &Client{appID: appID, apiToken: apiToken, baseURL: WSBaseURL, nextReqID: 1}
}

// NewClientFromEnv reads DERIV_APP_ID and DERIV_API_TOKEN
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("DERIV_APP_ID"), os.Getenv("DERIV_API_TOKEN"))
}

// Connect dials the API and authorizes when a token is configured
func (c *Client) Connect(ctx context.Context) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	wsURL := fmt.Sprintf("%s?app_id=%s", c.baseURL, c.appID)
	dialer := websocket.Dialer{HandshakeTimeout: WSHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.baseURL, err)
	}
	c.conn = conn
	log.Debug().Str("url", c.baseURL).Str("app_id", c.appID).Msg("connected to Deriv API")

	if c.apiToken != "" {
		if err := c.authorize(); err != nil {
			conn.Close()
			c.conn = nil
			return err
		}
	}
	return nil
}

// Close shuts down the connection
func (c *Client) Close() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	MsgType string          `json:"msg_type"`
	ReqID   int64           `json:"req_id"`
	Error   *apiError       `json:"error,omitempty"`
	Candles json.RawMessage `json:"candles,omitempty"`
}

// wireCandle is one candle as the ticks_history endpoint encodes it
type wireCandle struct {
	Epoch int64   `json:"epoch"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type historyRequest struct {
	TicksHistory    string `json:"ticks_history"`
	AdjustStartTime int    `json:"adjust_start_time"`
	Count           int    `json:"count"`
	Start           int64  `json:"start"`
	End             string `json:"end"`
	Style           string `json:"style"`
	Granularity     int    `json:"granularity"`
	ReqID           int64  `json:"req_id"`
}

// History fetches candles for the symbol from start onward. Granularity is
// the candle interval in seconds; count is clamped to the API ceiling.
func (c *Client) History(ctx context.Context, symbol string, granularity int, start int64, count int) ([]models.Candle, error) {
	if count <= 0 || count > MaxCandlesPerRequest {
		count = MaxCandlesPerRequest
	}

	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	reqID := c.nextReqID
	c.nextReqID++

	req := historyRequest{
		TicksHistory:    symbol,
		AdjustStartTime: 1,
		Count:           count,
		Start:           start,
		End:             "latest",
		Style:           "candles",
		Granularity:     granularity,
		ReqID:           reqID,
	}

	resp, err := c.roundTrip(ctx, req, reqID)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		if resp.Error.Code == "InvalidValue" {
			return nil, fmt.Errorf("ticks_history %s: %s (try one of: R_50, R_75, R_100, R_25, R_75_1S)", symbol, resp.Error.Message)
		}
		return nil, fmt.Errorf("ticks_history %s: %s", symbol, resp.Error.Message)
	}

	var wire []wireCandle
	if err := json.Unmarshal(resp.Candles, &wire); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	candles := make([]models.Candle, len(wire))
	for i, w := range wire {
		candles[i] = models.Candle{
			Timestamp: time.Unix(w.Epoch, 0).UTC(),
			Open:      w.Open,
			High:      w.High,
			Low:       w.Low,
			Close:     w.Close,
		}
	}
	return candles, nil
}

// authorize upgrades the session with the configured API token.
// Historical data works unauthorized; real-account endpoints do not.
func (c *Client) authorize() error {
	reqID := c.nextReqID
	c.nextReqID++

	req := struct {
		Authorize string `json:"authorize"`
		ReqID     int64  `json:"req_id"`
	}{Authorize: c.apiToken, ReqID: reqID}

	resp, err := c.roundTrip(context.Background(), req, reqID)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("authorize: %s", resp.Error.Message)
	}
	log.Debug().Msg("Deriv session authorized")
	return nil
}

// roundTrip sends one request and reads frames until the response with the
// matching req_id arrives. Callers hold connMutex.
func (c *Client) roundTrip(ctx context.Context, req any, reqID int64) (*apiResponse, error) {
	deadline := time.Now().Add(WSRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c.conn.SetReadDeadline(deadline)
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		var resp apiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Warn().Err(err).Msg("unparseable Deriv frame")
			continue
		}
		if resp.ReqID != reqID {
			continue
		}
		return &resp, nil
	}
}
