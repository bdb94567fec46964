package askcmder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/papercomputeco/pitwall/api"
	"github.com/papercomputeco/pitwall/pkg/cliui"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/sse"
)

// RemoteError is a failure reported by a pitwall server.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// remoteTimeout bounds a whole question, chart rendering included.
const remoteTimeout = 5 * time.Minute

// runRemote asks a running server over its query stream.
func (c *askCommander) runRemote(ctx context.Context, w io.Writer, question string) error {
	body, err := json.Marshal(dispatch.Query{SessionID: "cli", Text: question})
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}

	url := strings.TrimRight(c.remote, "/") + "/v1/queries/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", sse.ContentType)

	client := &http.Client{Timeout: remoteTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", c.remote, err)
	}
	defer resp.Body.Close()

	fmt.Fprintln(w)
	steps := cliui.NewSteps(w)

	if resp.StatusCode != http.StatusOK {
		remoteErr := decodeRemoteError(resp)
		steps.Done(remoteErr)
		fmt.Fprintf(w, "\n  %s\n\n", cliui.WarnStyle.Render(remoteErr.Message))
		return remoteErr
	}

	// With --debug the raw stream is echoed to stderr as it arrives.
	var raw io.Writer = io.Discard
	if c.debug {
		raw = os.Stderr
	}
	reply, err := readStream(sse.NewTeeReader(resp.Body, raw), func(st dispatch.Stage) { steps.Next(stageMessages[st]) })
	steps.Done(err)
	if err != nil {
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) {
			fmt.Fprintf(w, "\n  %s\n\n", cliui.WarnStyle.Render(remoteErr.Message))
		}
		return err
	}

	summary, err := cliui.RenderMarkdown(reply.Summary)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprintln(w, summary)

	base := strings.TrimRight(c.remote, "/")
	fmt.Fprintf(w, "  %s\n\n", cliui.HeaderStyle.Render("Charts"))
	for _, a := range reply.Artifacts {
		fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(string(a.Kind)), cliui.ValueStyle.Render(base+a.URL))
	}
	fmt.Fprintln(w)

	return nil
}

// readStream consumes a query stream until its reply or error event.
func readStream(r *sse.Reader, onStage func(dispatch.Stage)) (*api.QueryResponse, error) {
	for {
		ev, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("reading query stream: %w", err)
		}
		if ev == nil {
			return nil, errors.New("query stream ended without a reply")
		}

		switch ev.Type {
		case api.EventStage:
			var st api.StageEvent
			if err := json.Unmarshal([]byte(ev.Data), &st); err != nil {
				return nil, fmt.Errorf("decoding stage event: %w", err)
			}
			onStage(st.Stage)
		case api.EventReply:
			var reply api.QueryResponse
			if err := json.Unmarshal([]byte(ev.Data), &reply); err != nil {
				return nil, fmt.Errorf("decoding reply: %w", err)
			}
			return &reply, nil
		case api.EventError:
			var body api.ErrorResponse
			if err := json.Unmarshal([]byte(ev.Data), &body); err != nil {
				return nil, fmt.Errorf("decoding error event: %w", err)
			}
			return nil, &RemoteError{Kind: body.Kind, Message: body.Error}
		}
	}
}

func decodeRemoteError(resp *http.Response) *RemoteError {
	var body api.ErrorResponse
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &RemoteError{Message: fmt.Sprintf("server returned %s", resp.Status)}
	}
	return &RemoteError{Kind: body.Kind, Message: body.Error}
}
