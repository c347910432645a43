package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callScope/message"
)

// Relay delivers envelopes to the relay's beacon endpoint as
// GET <url>/?<nonce>&<escaped json>. The nonce defeats caching.
type Relay struct {
	url    string
	client *http.Client
	logger *zap.Logger
	nonce  func() string
}

func NewRelay(relayURL string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		url: strings.TrimSuffix(relayURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		nonce:  uuid.NewString,
	}
}

// escape encodes s the way the relay's unescape reads it back: unreserved
// ASCII as is, other ASCII bytes as %XX and every other character as the
// %uXXXX form of its UTF-16 code units. Plain percent-encoded UTF-8 would be
// decoded there as one Latin-1 character per byte.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf && unreserved(byte(r)):
			b.WriteRune(r)
		case r < utf8.RuneSelf:
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			for _, unit := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "%%u%04X", unit)
			}
		}
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.", c) >= 0
}

// Send encodes env and issues the beacon request.
func (r *Relay) Send(ctx context.Context, env *message.Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/?%s&%s", r.url, r.nonce(), escape(string(payload)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	r.logger.Debug("Envelope relayed",
		zap.String("channel", env.ID),
		zap.String("type", string(env.Data.Type)),
		zap.Int("bytes", len(payload)))

	return nil
}
