// Package rpc runs the agent's request loop: a subscription on the
// agent's own subject, one goroutine per accepted message, and a typed
// reply or a service-error frame back on the caller's reply subject.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/ironhive/agent/internal/agent"
	"github.com/ironhive/agent/internal/msg"
	"github.com/ironhive/agent/internal/wmi"
)

// ErrNoReplySubject marks a handler result that had nowhere to go. It is
// logged, never sent.
var ErrNoReplySubject = errors.New("no reply subject")

// ErrContendedUpdateOp is returned when a Windows Update operation is
// already in flight.
var ErrContendedUpdateOp = errors.New("Already installing or checking for windows updates")

// UnsupportedRequestError reports a request variant this platform does
// not implement.
type UnsupportedRequestError struct {
	Name string
}

func (e *UnsupportedRequestError) Error() string {
	return fmt.Sprintf("unsupported request %q", e.Name)
}

const (
	headerServiceError     = "Nats-Service-Error"
	headerServiceErrorCode = "Nats-Service-Error-Code"
)

// serviceCoder lets an error carry a numeric code into the error-code
// header; everything else reports 0.
type serviceCoder interface {
	ServiceCode() int
}

// Ironhive owns the broker connection and the collaborators the
// handlers need.
type Ironhive struct {
	Conn  *nats.Conn
	Agent *agent.Agent
	WMI   *wmi.Manager

	sub     *nats.Subscription
	checkin *agent.Checkin
	wuaMu   sync.Mutex
}

// New connects to the broker and subscribes to the agent's subject.
func New(a *agent.Agent, url string, opts ...nats.Option) (*Ironhive, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	ih, err := NewWithConn(a, nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return ih, nil
}

// NewWithConn wraps an existing connection; the caller keeps ownership
// of closing it.
func NewWithConn(a *agent.Agent, nc *nats.Conn) (*Ironhive, error) {
	sub, err := nc.SubscribeSync(a.AgentID)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", a.AgentID, err)
	}

	ih := &Ironhive{
		Conn:  nc,
		Agent: a,
		WMI:   wmi.Start(),
		sub:   sub,
	}
	ih.checkin = &agent.Checkin{Agent: a, Conn: nc, WMI: ih.WMI}
	return ih, nil
}

// Run drives the subscription until the context is canceled or the
// connection closes. Every in-flight handler is awaited before return.
func (ih *Ironhive) Run(ctx context.Context) error {
	log.Printf("[rpc] agent %s listening", ih.Agent.AgentID)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		m, err := ih.sub.NextMsgWithContext(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrBadSubscription):
				return nil
			default:
				// Transient conditions such as a slow-consumer overflow
				// drop frames; the loop keeps serving.
				log.Printf("[rpc] subscription receive: %v", err)
				continue
			}
		}

		wg.Add(1)
		go func(m *nats.Msg) {
			defer wg.Done()
			ih.dispatch(m)
		}(m)
	}
}

// withUpdateLock serializes update-agent operations. A caller that finds
// the lock held fails fast with ErrContendedUpdateOp instead of queueing.
func (ih *Ironhive) withUpdateLock(fn func() (msg.Response, error)) (msg.Response, error) {
	if !ih.wuaMu.TryLock() {
		return nil, ErrContendedUpdateOp
	}
	defer ih.wuaMu.Unlock()
	return fn()
}

// Close tears down the subscription and the connection.
func (ih *Ironhive) Close() {
	if err := ih.sub.Unsubscribe(); err != nil {
		log.Printf("[rpc] unsubscribe: %v", err)
	}
	ih.Conn.Close()
}

func (ih *Ironhive) dispatch(m *nats.Msg) {
	req, err := msg.DecodeRequest(m.Data)
	if err != nil {
		log.Printf("[rpc] drop undecodable frame on %s: %v", m.Subject, err)
		return
	}

	resp, err := ih.handle(req)
	if err != nil {
		ih.respondErr(m, req, err)
	} else {
		ih.respond(m, req, resp)
	}

	if err := ih.Conn.Flush(); err != nil {
		log.Printf("[rpc] flush: %v", err)
	}
}

func (ih *Ironhive) respond(m *nats.Msg, req msg.Request, resp msg.Response) {
	if m.Reply == "" {
		log.Printf("[rpc] %s: %v", req.Func(), ErrNoReplySubject)
		return
	}
	if err := ih.Conn.Publish(m.Reply, msg.EncodeResponse(resp)); err != nil {
		log.Printf("[rpc] publish %s response: %v", req.Func(), err)
	}
}

func (ih *Ironhive) respondErr(m *nats.Msg, req msg.Request, herr error) {
	if m.Reply == "" {
		log.Printf("[rpc] %s failed without reply subject: %v", req.Func(), herr)
		return
	}

	code := 0
	var coder serviceCoder
	if errors.As(herr, &coder) {
		code = coder.ServiceCode()
	}

	out := &nats.Msg{
		Subject: m.Reply,
		Header: nats.Header{
			headerServiceError:     []string{herr.Error()},
			headerServiceErrorCode: []string{strconv.Itoa(code)},
		},
	}
	if err := ih.Conn.PublishMsg(out); err != nil {
		log.Printf("[rpc] publish %s error: %v", req.Func(), err)
	}
}
