package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startMockMpv creates a Unix socket that accepts one connection and answers
// every command with "success". Each response is preceded by the given
// events, mimicking mpv interleaving pushes with replies. Received commands
// are sent on the returned channel.
func startMockMpv(t *testing.T, before []Event) (string, <-chan Command) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "mpv.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		ln.Close()
		os.Remove(sockPath)
	})

	cmds := make(chan Command, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var cmd Command
			if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
				return
			}
			cmds <- cmd

			for _, ev := range before {
				data, _ := json.Marshal(ev)
				conn.Write(append(data, '\n'))
			}
			data, _ := json.Marshal(Response{Error: "success", RequestID: cmd.RequestID})
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath, cmds
}

func TestClientSendCommandSkipsEvents(t *testing.T) {
	sockPath, cmds := startMockMpv(t, []Event{
		{Event: "property-change", ID: 1, Name: PropTimePos, Data: json.RawMessage("1.5")},
		{Event: "playback-restart"},
	})

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	resp, err := client.SendCommand("set_property", "pause", false)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK() {
		t.Errorf("error = %q, want success", resp.Error)
	}
	if resp.RequestID != 1 {
		t.Errorf("request_id = %d, want 1", resp.RequestID)
	}

	cmd := <-cmds
	if len(cmd.Command) != 3 || cmd.Command[0] != "set_property" || cmd.Command[2] != false {
		t.Errorf("command = %#v", cmd.Command)
	}

	// Request ids increase per command.
	resp, err = client.SendCommand("get_property", "volume")
	if err != nil {
		t.Fatalf("send 2: %v", err)
	}
	if resp.RequestID != 2 {
		t.Errorf("request_id = %d, want 2", resp.RequestID)
	}
}

func TestClientConnectFailure(t *testing.T) {
	_, err := Connect("/nonexistent/path/mpv.sock")
	if err == nil {
		t.Error("expected error connecting to nonexistent socket")
	}
}

func TestRunReportsMpvError(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "mpv.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		if !scanner.Scan() {
			return
		}
		var cmd Command
		json.Unmarshal(scanner.Bytes(), &cmd)
		data, _ := json.Marshal(Response{Error: "property unavailable", RequestID: cmd.RequestID})
		conn.Write(append(data, '\n'))
	}()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Run("get_property", "width"); err == nil {
		t.Error("expected error for failed mpv command")
	}
}

// startMockEventStream creates an mpv that streams events right after
// accepting a connection.
func startMockEventStream(t *testing.T, events []Event) string {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "mpv.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// A stray response must be skipped by ReadEvent.
		resp, _ := json.Marshal(Response{Error: "success", RequestID: 9})
		conn.Write(append(resp, '\n'))

		for _, ev := range events {
			data, _ := json.Marshal(ev)
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath
}

func TestClientReadEvents(t *testing.T) {
	sockPath := startMockEventStream(t, []Event{
		{Event: "property-change", ID: 2, Name: PropDuration, Data: json.RawMessage("300.5")},
		{Event: "property-change", ID: 3, Name: PropPause, Data: json.RawMessage("true")},
		{Event: "end-file", Reason: "eof"},
	})

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ev1, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 1: %v", err)
	}
	if d, ok := ev1.Float(); ev1.Name != PropDuration || !ok || d != 300.5 {
		t.Errorf("event1 = %+v", ev1)
	}

	ev2, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 2: %v", err)
	}
	if p, ok := ev2.Bool(); !ok || !p {
		t.Errorf("event2 = %+v", ev2)
	}

	ev3, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 3: %v", err)
	}
	if ev3.Event != "end-file" || ev3.Reason != "eof" {
		t.Errorf("event3 = %+v", ev3)
	}
}

func TestEventNullData(t *testing.T) {
	ev := Event{Event: "property-change", Name: PropTimePos, Data: json.RawMessage("null")}
	if _, ok := ev.Float(); ok {
		t.Error("null data should not decode as a number")
	}
	if _, ok := (Event{}).Bool(); ok {
		t.Error("missing data should not decode as a bool")
	}
}

func TestPlayerCommands(t *testing.T) {
	sockPath, cmds := startMockMpv(t, nil)

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	p := NewPlayer(client)

	if err := p.SetVolume(0.5); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	cmd := <-cmds
	if cmd.Command[1] != PropVolume || cmd.Command[2] != float64(50) {
		t.Errorf("volume command = %#v", cmd.Command)
	}

	if err := p.Seek(12.5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	cmd = <-cmds
	if cmd.Command[0] != "seek" || cmd.Command[1] != 12.5 || cmd.Command[2] != "absolute" {
		t.Errorf("seek command = %#v", cmd.Command)
	}

	if err := p.Load("/clips/a.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cmd = <-cmds; cmd.Command[0] != "loadfile" {
		t.Errorf("load command = %#v", cmd.Command)
	}
	if cmd = <-cmds; cmd.Command[1] != PropPause || cmd.Command[2] != true {
		t.Errorf("pause after load = %#v", cmd.Command)
	}
}

func TestWaitForSocketTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := WaitForSocket(ctx, filepath.Join(t.TempDir(), "never.sock")); err == nil {
		t.Error("expected timeout waiting for missing socket")
	}
}

func TestPlayerWithoutClient(t *testing.T) {
	p := NewPlayer(nil)
	if err := p.Play(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Play() error = %v, want ErrNotConnected", err)
	}

	sockPath, cmds := startMockMpv(t, nil)
	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	p.SetClient(client)
	if err := p.Play(); err != nil {
		t.Fatalf("Play after SetClient: %v", err)
	}
	if cmd := <-cmds; cmd.Command[2] != false {
		t.Errorf("play command = %#v", cmd.Command)
	}
}
