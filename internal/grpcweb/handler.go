// Package grpcweb lets browsers speak gRPC-Web (HTTP/1.1) to the native
// gRPC server. Messages pass through as opaque JSON bytes.
package grpcweb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	api "vitalrite-api/internal/api/v1"
)

const (
	dataFlag    = 0x00
	trailerFlag = 0x80
	contentType = "application/grpc-web+" + api.CodecName
)

// Bridge translates gRPC-Web into calls on a gRPC connection.
type Bridge struct {
	conn    *grpc.ClientConn
	streams map[string]bool
}

// New dials the gRPC server at addr (e.g. "localhost:50051").
// streaming names the full method paths that are server-streaming.
func New(addr string, streaming ...string) (*Bridge, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	return NewWithConn(conn, streaming...), nil
}

func NewWithConn(conn *grpc.ClientConn, streaming ...string) *Bridge {
	b := &Bridge{conn: conn, streams: make(map[string]bool, len(streaming))}
	for _, m := range streaming {
		b.streams[m] = true
	}
	return b
}

func (b *Bridge) Close() error { return b.conn.Close() }

// Handler returns an http.Handler that translates gRPC-Web → gRPC.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, X-Grpc-Web, X-User-Agent, Authorization, x-grpc-web")
		w.Header().Set("Access-Control-Expose-Headers",
			"Grpc-Status, Grpc-Message, Grpc-Status-Details-Bin, grpc-status, grpc-message")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "application/grpc-web") {
			http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
			return
		}
		if sub := strings.TrimPrefix(ct, "application/grpc-web"); sub != "" && sub != "+"+api.CodecName {
			http.Error(w, "only grpc-web+"+api.CodecName+" is served", http.StatusUnsupportedMediaType)
			return
		}

		payload, err := readFrame(r.Body)
		w.Header().Set("Content-Type", contentType)
		if err != nil {
			w.WriteHeader(http.StatusOK)
			writeTrailer(w, codes.InvalidArgument, err.Error())
			return
		}

		// forward metadata
		md := metadata.MD{}
		if vals := r.Header.Values("Authorization"); len(vals) > 0 {
			md.Set("authorization", vals...)
		}
		ctx := metadata.NewOutgoingContext(r.Context(), md)

		log.Printf("grpc-web → %s", r.URL.Path)
		if b.streams[r.URL.Path] {
			b.stream(ctx, w, r.URL.Path, payload)
			return
		}
		b.forward(ctx, w, r.URL.Path, payload)
	})
}

// readFrame returns the message of a single-frame request body:
// 1-byte flag + 4-byte big-endian length + message.
func readFrame(body io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.New("read body failed")
	}
	if len(buf) < 5 {
		return nil, errors.New("body too short")
	}
	n := binary.BigEndian.Uint32(buf[1:5])
	if int(n)+5 > len(buf) {
		return nil, errors.New("incomplete frame")
	}
	return buf[5 : 5+n], nil
}

func (b *Bridge) forward(ctx context.Context, w http.ResponseWriter, method string, payload []byte) {
	// invoke gRPC method using raw codec (pass-through bytes)
	resp := &rawMsg{}
	err := b.conn.Invoke(ctx, method, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	w.WriteHeader(http.StatusOK)
	if err != nil {
		st, _ := status.FromError(err)
		log.Printf("grpc-web error: %s: %s", st.Code(), st.Message())
		writeTrailer(w, st.Code(), st.Message())
		return
	}
	w.Write(frame(dataFlag, resp.data))
	writeTrailer(w, codes.OK, "")
}

// stream relays a server-streaming call, flushing each message as it
// arrives.
func (b *Bridge) stream(ctx context.Context, w http.ResponseWriter, method string, payload []byte) {
	flusher, _ := w.(http.Flusher)
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}

	cs, err := b.conn.NewStream(ctx, desc, method, grpc.ForceCodec(rawCodec{}))
	w.WriteHeader(http.StatusOK)
	if err == nil {
		err = cs.SendMsg(&rawMsg{data: payload})
	}
	if err == nil {
		err = cs.CloseSend()
	}
	for err == nil {
		m := &rawMsg{}
		if err = cs.RecvMsg(m); err != nil {
			break
		}
		w.Write(frame(dataFlag, m.data))
		if flusher != nil {
			flusher.Flush()
		}
	}
	if errors.Is(err, io.EOF) {
		writeTrailer(w, codes.OK, "")
		return
	}
	st, _ := status.FromError(err)
	if st.Code() != codes.Canceled {
		log.Printf("grpc-web stream error: %s: %s", st.Code(), st.Message())
	}
	writeTrailer(w, st.Code(), st.Message())
}

// rawMsg wraps already-encoded message bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through without marshal/unmarshal. Its name is
// the JSON subtype so the server decodes with the JSON codec.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	return v.(*rawMsg).data, nil
}
func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}
func (rawCodec) Name() string { return api.CodecName }

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func writeTrailer(w http.ResponseWriter, code codes.Code, msg string) {
	trailer := fmt.Sprintf("grpc-status:%d\r\n", code)
	if msg != "" {
		trailer += "grpc-message:" + msg + "\r\n"
	}
	w.Write(frame(trailerFlag, []byte(trailer)))
}
