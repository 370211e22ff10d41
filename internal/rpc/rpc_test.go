package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"

	"github.com/ironhive/agent/internal/agent"
	"github.com/ironhive/agent/internal/msg"
)

// startAgent brings up an embedded broker, an agent serving on it, and a
// client connection for driving requests.
func startAgent(t *testing.T) (*nats.Conn, string) {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	a := agent.New("test-agent-" + t.Name())
	ih, err := New(a, srv.ClientURL())
	if err != nil {
		t.Fatalf("start agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ih.Run(ctx); err != nil {
			t.Errorf("run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		ih.Close()
	})

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(nc.Close)

	return nc, a.AgentID
}

func request(t *testing.T, nc *nats.Conn, subject string, req msg.Request) *nats.Msg {
	t.Helper()
	data, err := msg.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode %s: %v", req.Func(), err)
	}
	reply, err := nc.Request(subject, data, 10*time.Second)
	if err != nil {
		t.Fatalf("request %s: %v", req.Func(), err)
	}
	return reply
}

func decode(t *testing.T, reply *nats.Msg) msg.Response {
	t.Helper()
	if errmsg := reply.Header.Get("Nats-Service-Error"); errmsg != "" {
		t.Fatalf("service error: %s", errmsg)
	}
	resp, err := msg.DecodeResponse(reply.Data)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return resp
}

func TestPingPong(t *testing.T) {
	nc, subject := startAgent(t)

	resp := decode(t, request(t, nc, subject, msg.Ping{}))
	if _, ok := resp.(msg.Pong); !ok {
		t.Fatalf("reply = %#v, want pong", resp)
	}
}

func TestCpuLoadAvg(t *testing.T) {
	nc, subject := startAgent(t)

	resp := decode(t, request(t, nc, subject, msg.CpuLoadAvg{}))
	loads, ok := resp.(msg.CpuLoadAvgResp)
	if !ok {
		t.Fatalf("reply = %#v, want cpuloadavg", resp)
	}
	if loads.One < 0 || loads.Five < 0 || loads.Fifteen < 0 {
		t.Errorf("negative load average: %+v", loads)
	}
}

func TestPublicIPStubbed(t *testing.T) {
	orig := fetchPublicIP
	fetchPublicIP = func() (string, error) { return "203.0.113.7", nil }
	t.Cleanup(func() { fetchPublicIP = orig })

	nc, subject := startAgent(t)

	resp := decode(t, request(t, nc, subject, msg.PublicIP{}))
	ip, ok := resp.(msg.PublicIPResp)
	if !ok {
		t.Fatalf("reply = %#v, want publicip", resp)
	}
	if ip.IP != "203.0.113.7" {
		t.Errorf("ip = %q", ip.IP)
	}
}

func TestNeedsReboot(t *testing.T) {
	nc, subject := startAgent(t)

	resp := decode(t, request(t, nc, subject, msg.NeedsReboot{}))
	if _, ok := resp.(msg.NeedsRebootResp); !ok {
		t.Fatalf("reply = %#v, want needsreboot", resp)
	}
}

func TestUndecodableFrameIsDropped(t *testing.T) {
	nc, subject := startAgent(t)

	inbox := nats.NewInbox()
	sub, err := nc.SubscribeSync(inbox)
	if err != nil {
		t.Fatalf("subscribe inbox: %v", err)
	}
	if err := nc.PublishRequest(subject, inbox, []byte(`{"func":"no-such-op"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if m, err := sub.NextMsg(500 * time.Millisecond); err == nil {
		t.Fatalf("unexpected reply %q to an unknown request", m.Data)
	}

	// The loop must still be serving afterwards.
	resp := decode(t, request(t, nc, subject, msg.Ping{}))
	if _, ok := resp.(msg.Pong); !ok {
		t.Fatalf("reply = %#v, want pong", resp)
	}
}

func TestMissingReplySubjectIsTolerated(t *testing.T) {
	nc, subject := startAgent(t)

	data, err := msg.EncodeRequest(msg.Ping{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := nc.Publish(subject, data); err != nil {
		t.Fatalf("publish: %v", err)
	}

	resp := decode(t, request(t, nc, subject, msg.Ping{}))
	if _, ok := resp.(msg.Pong); !ok {
		t.Fatalf("reply = %#v, want pong", resp)
	}
}

func TestCheckinHello(t *testing.T) {
	nc, subject := startAgent(t)

	watcher, err := nats.Connect(nc.ConnectedUrl())
	if err != nil {
		t.Fatalf("connect watcher: %v", err)
	}
	defer watcher.Close()
	sub, err := watcher.SubscribeSync(subject)
	if err != nil {
		t.Fatalf("subscribe agent subject: %v", err)
	}
	if err := watcher.Flush(); err != nil {
		t.Fatalf("flush watcher: %v", err)
	}

	resp := decode(t, request(t, nc, subject, msg.Checkin{Mode: msg.ModeHello}))
	if _, ok := resp.(msg.Ok); !ok {
		t.Fatalf("reply = %#v, want ok", resp)
	}

	// The watcher sees both the request frame and the snapshot; the
	// snapshot is the one whose reply subject is the mode string.
	deadline := time.Now().Add(5 * time.Second)
	for {
		m, err := sub.NextMsg(time.Until(deadline))
		if err != nil {
			t.Fatalf("no hello snapshot observed: %v", err)
		}
		if m.Reply != string(msg.ModeHello) {
			continue
		}
		var hello msg.CheckInNats
		if err := json.Unmarshal(m.Data, &hello); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if hello.AgentID != subject {
			t.Errorf("snapshot agent_id = %q, want %q", hello.AgentID, subject)
		}
		if hello.Version == "" {
			t.Error("snapshot without version")
		}
		return
	}
}

func TestRunScriptPython(t *testing.T) {
	python := pythonOrSkip(t)
	nc, subject := startAgent(t)

	resp := decode(t, request(t, nc, subject, msg.RunScript{
		Code:    `print("hi from ironhive!")`,
		Mode:    msg.ScriptMode{Kind: msg.ScriptBinary, Path: python, Ext: ".py"},
		Timeout: msg.Duration(10 * time.Second),
		ID:      1,
	}))
	out, ok := resp.(msg.RunScriptResp)
	if !ok {
		t.Fatalf("reply = %#v, want runscriptresp", resp)
	}
	if out.Stdout != "hi from ironhive!\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}
	if out.Retcode != 0 || out.ID != 1 {
		t.Errorf("retcode = %d, id = %d", out.Retcode, out.ID)
	}
	if out.ExecutionTime <= 0 {
		t.Errorf("execution_time = %v", time.Duration(out.ExecutionTime))
	}
}

func TestRunScriptFibonacci(t *testing.T) {
	python := pythonOrSkip(t)
	nc, subject := startAgent(t)

	code := `
def fibonacci(n):
    if n <= 0:
        return "Please enter a positive integer."
    elif n == 1:
        return 0
    elif n == 2:
        return 1
    else:
        a, b = 0, 1
        for _ in range(3, n+1):
            a, b = b, a + b
        return b

n = 10
result = fibonacci(n)
print(f"The value of the {n}th term in the Fibonacci sequence is: {result}")
`

	resp := decode(t, request(t, nc, subject, msg.RunScript{
		Code:    code,
		Mode:    msg.ScriptMode{Kind: msg.ScriptBinary, Path: python, Ext: ".py"},
		Timeout: msg.Duration(10 * time.Second),
		ID:      2,
	}))
	out, ok := resp.(msg.RunScriptResp)
	if !ok {
		t.Fatalf("reply = %#v, want runscriptresp", resp)
	}
	want := "The value of the 10th term in the Fibonacci sequence is: 34\n"
	if out.Stdout != want {
		t.Errorf("stdout = %q, want %q", out.Stdout, want)
	}
	if out.ID != 2 {
		t.Errorf("id = %d", out.ID)
	}
}

func TestRawCmdFailureBecomesServiceError(t *testing.T) {
	nc, subject := startAgent(t)

	reply := request(t, nc, subject, msg.RawCmd{
		Shell:   "no-such-shell-zzz",
		Command: "echo hello",
		Timeout: msg.Duration(5 * time.Second),
	})
	if len(reply.Data) != 0 {
		t.Errorf("error reply carried payload %q", reply.Data)
	}
	if reply.Header.Get("Nats-Service-Error") == "" {
		t.Fatal("missing Nats-Service-Error header")
	}
	if code := reply.Header.Get("Nats-Service-Error-Code"); code != "0" {
		t.Errorf("error code = %q", code)
	}
}

func TestRunSurvivesPendingOverflow(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	a := agent.New("test-agent-" + t.Name())
	ih, err := New(a, srv.ClientURL())
	if err != nil {
		t.Fatalf("start agent: %v", err)
	}
	// A tiny pending limit makes a request burst overflow the
	// subscription and raise a slow-consumer error.
	if err := ih.sub.SetPendingLimits(5, 32*1024); err != nil {
		t.Fatalf("set pending limits: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ih.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
		ih.Close()
	})

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer nc.Close()

	ping, err := msg.EncodeRequest(msg.Ping{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 2000; i++ {
		if err := nc.Publish(a.AgentID, ping); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// The burst drops frames but must not take the loop down.
	resp := decode(t, request(t, nc, a.AgentID, msg.Ping{}))
	if _, ok := resp.(msg.Pong); !ok {
		t.Fatalf("reply = %#v, want pong", resp)
	}
}

func TestUpdateOperationsFailFastWhenContended(t *testing.T) {
	ih := &Ironhive{}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := ih.withUpdateLock(func() (msg.Response, error) {
			close(started)
			<-release
			return msg.Ok{}, nil
		})
		done <- err
	}()

	<-started
	if _, err := ih.withUpdateLock(func() (msg.Response, error) {
		return msg.Ok{}, nil
	}); !errors.Is(err, ErrContendedUpdateOp) {
		t.Fatalf("err = %v, want ErrContendedUpdateOp", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder errored: %v", err)
	}

	if _, err := ih.withUpdateLock(func() (msg.Response, error) {
		return msg.Ok{}, nil
	}); err != nil {
		t.Fatalf("lock not released: %v", err)
	}
}

func pythonOrSkip(t *testing.T) string {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	return python
}
