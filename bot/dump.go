package bot

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
)

// TransportDump logs full outbound HTTP exchanges of a platform client.
// Adapters enable it with the "trace" metadata option.
type TransportDump struct {
	Transport http.RoundTripper
	Log       *slog.Logger
	WithBody  bool
}

func (dump *TransportDump) RoundTrip(req *http.Request) (*http.Response, error) {

	log := dump.Log
	if log == nil {
		log = slog.Default()
	}

	if raw, err := httputil.DumpRequestOut(req, dump.WithBody); err == nil {
		log.Debug("http: request", slog.String("dump", string(raw)))
	}

	transport := dump.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	res, err := transport.RoundTrip(req)
	if err != nil {
		log.Error("http: round trip", slog.Any("error", err))
		return res, err
	}

	if raw, err := httputil.DumpResponse(res, dump.WithBody); err == nil {
		log.Debug("http: response", slog.String("dump", string(raw)))
	}

	return res, nil
}

// TraceClient wraps client with TransportDump when on is set. Platform
// packages call it with their "trace" metadata option.
func TraceClient(client *http.Client, log *slog.Logger, on bool) *http.Client {
	if !on {
		return client
	}
	if client == nil {
		client = &http.Client{}
	}
	client.Transport = &TransportDump{
		Transport: client.Transport,
		Log:       log,
		WithBody:  true,
	}
	return client
}
