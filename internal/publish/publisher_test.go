// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/prtbus/internal/poller"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes; other client methods are not used
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	published    []published
	subscribed   []string
	handler      mqtt.MessageHandler
	connected    bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	}
	c.published = append(c.published, published{topic, retained, b})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, topic)
	c.handler = cb
	return doneToken{}
}

func (c *fakeClient) IsConnected() bool { return c.connected }
func (c *fakeClient) Disconnect(uint)   { c.disconnected = true }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type writeCall struct {
	addr  uint8
	param heatmiser.ParamID
	value int
	mode  *heatmiser.RunMode
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []writeCall
	err   error
	hold  chan struct{} // when set, writes block until it is closed
}

func (w *fakeWriter) WriteParameter(_ context.Context, addr uint8, param heatmiser.ParamID, value int) error {
	if w.hold != nil {
		<-w.hold
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, writeCall{addr: addr, param: param, value: value})
	return w.err
}

func (w *fakeWriter) SetMode(_ context.Context, addr uint8, mode heatmiser.RunMode) error {
	if w.hold != nil {
		<-w.hold
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, writeCall{addr: addr, mode: &mode})
	return w.err
}

func (w *fakeWriter) recorded() []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]writeCall(nil), w.calls...)
}

func newTestPublisher(w Writer) (*Publisher, *fakeClient) {
	c := &fakeClient{}
	return NewWithClient(context.Background(), c, "heatmiser", w, zerolog.Nop()), c
}

func TestPublish_RetainedState(t *testing.T) {
	p, c := newTestPublisher(&fakeWriter{})
	updated := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	p.Publish(poller.Snapshot{
		ID:   4,
		Name: "Kitchen",
		Params: &heatmiser.ParameterSet{
			TargetTemp:  21,
			FrostTemp:   12,
			BuiltInTemp: 19.5,
			HeatState:   1,
			Clock:       heatmiser.Clock{DayOfWeek: 3, Hour: 14, Minute: 5, Second: 9},
		},
		UpdatedAt:  updated,
		ReadStats:  "0.000% 3",
		WriteStats: "1 0 0",
	})

	if len(c.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(c.published))
	}
	msg := c.published[0]
	if msg.topic != "heatmiser/4/state" || !msg.retained {
		t.Errorf("topic = %q retained = %v", msg.topic, msg.retained)
	}

	var st State
	if err := json.Unmarshal(msg.payload, &st); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !st.Online || st.Stale {
		t.Errorf("online = %v stale = %v", st.Online, st.Stale)
	}
	if st.Temperature == nil || *st.Temperature != 19.5 {
		t.Errorf("temperature = %v", st.Temperature)
	}
	if st.Target == nil || *st.Target != 21 {
		t.Errorf("target = %v", st.Target)
	}
	if st.Mode != "heat" || st.Heating == nil || !*st.Heating {
		t.Errorf("mode = %q heating = %v", st.Mode, st.Heating)
	}
	if st.Clock != "Wed 14:05:09" {
		t.Errorf("clock = %q", st.Clock)
	}
	if st.UpdatedAt != "2026-03-04T05:06:07Z" {
		t.Errorf("updated_at = %q", st.UpdatedAt)
	}
	if st.ReadStats != "0.000% 3" || st.WriteStats != "1 0 0" {
		t.Errorf("stats = %q / %q", st.ReadStats, st.WriteStats)
	}
}

func TestStateFromSnapshot_Offline(t *testing.T) {
	st := StateFromSnapshot(poller.Snapshot{ID: 2, Name: "Hall", Err: errors.New("no reply")})

	if st.Online || st.Stale {
		t.Errorf("online = %v stale = %v, want both false", st.Online, st.Stale)
	}
	if st.Temperature != nil || st.Mode != "" {
		t.Error("parameter fields should be omitted before the first read")
	}
	if st.Error != "no reply" {
		t.Errorf("error = %q", st.Error)
	}
}

func TestHandleSet_Parameter(t *testing.T) {
	w := &fakeWriter{}
	p, _ := newTestPublisher(w)
	var refreshed []uint8
	p.OnWrite(func(_ context.Context, id uint8) { refreshed = append(refreshed, id) })

	if err := p.HandleSet("heatmiser/7/set/target", []byte(" 22 ")); err != nil {
		t.Fatalf("HandleSet() error = %v", err)
	}

	if len(w.calls) != 1 {
		t.Fatalf("writes = %d, want 1", len(w.calls))
	}
	got := w.calls[0]
	if got.addr != 7 || got.param != heatmiser.ParamTargetTemp || got.value != 22 {
		t.Errorf("write = %+v", got)
	}
	if len(refreshed) != 1 || refreshed[0] != 7 {
		t.Errorf("refreshed = %v, want [7]", refreshed)
	}
}

func TestHandleSet_Mode(t *testing.T) {
	tests := []struct {
		payload string
		want    heatmiser.RunMode
	}{
		{"off", heatmiser.ModeOff},
		{"AUTO", heatmiser.ModeAuto},
		{"heat", heatmiser.ModeHeat},
		{"on", heatmiser.ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			w := &fakeWriter{}
			p, _ := newTestPublisher(w)
			if err := p.HandleSet("heatmiser/2/set/mode", []byte(tt.payload)); err != nil {
				t.Fatalf("HandleSet() error = %v", err)
			}
			if len(w.calls) != 1 || w.calls[0].mode == nil || *w.calls[0].mode != tt.want {
				t.Errorf("calls = %+v, want mode %v", w.calls, tt.want)
			}
		})
	}
}

func TestHandleSet_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"other prefix", "other/1/set/target", "20", ErrBadCommand},
		{"missing set", "heatmiser/1/get/target", "20", ErrBadCommand},
		{"bad device", "heatmiser/x/set/target", "20", ErrBadCommand},
		{"device too large", "heatmiser/300/set/target", "20", ErrBadCommand},
		{"not an integer", "heatmiser/1/set/target", "warm", ErrBadCommand},
		{"unknown param", "heatmiser/1/set/colour", "1", heatmiser.ErrInvalidParameter},
		{"unknown mode", "heatmiser/1/set/mode", "boost", heatmiser.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			p, _ := newTestPublisher(w)
			err := p.HandleSet(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.want) {
				t.Errorf("HandleSet() error = %v, want %v", err, tt.want)
			}
			if len(w.calls) != 0 {
				t.Errorf("rejected command reached the line: %+v", w.calls)
			}
		})
	}
}

func TestHandleSet_WriteErrorSkipsRefresh(t *testing.T) {
	w := &fakeWriter{err: heatmiser.ErrInvalidParameter}
	p, _ := newTestPublisher(w)
	refreshed := false
	p.OnWrite(func(context.Context, uint8) { refreshed = true })

	if err := p.HandleSet("heatmiser/1/set/frost", []byte("50")); !errors.Is(err, heatmiser.ErrInvalidParameter) {
		t.Errorf("error = %v", err)
	}
	if refreshed {
		t.Error("refresh ran after a failed write")
	}
}

func TestOnConnect_SubscribesAndAnnounces(t *testing.T) {
	w := &fakeWriter{}
	p, c := newTestPublisher(w)

	p.onConnect(c)

	if len(c.subscribed) != 1 || c.subscribed[0] != "heatmiser/+/set/+" {
		t.Errorf("subscribed = %v", c.subscribed)
	}
	if len(c.published) != 1 || c.published[0].topic != "heatmiser/status" || string(c.published[0].payload) != "online" {
		t.Errorf("published = %+v", c.published)
	}

	c.handler(c, fakeMessage{topic: "heatmiser/5/set/keylock", payload: []byte("1")})
	p.inflight.Wait()
	if calls := w.recorded(); len(calls) != 1 || calls[0].param != heatmiser.ParamKeyLock {
		t.Errorf("routed calls = %+v", calls)
	}
}

func TestHandleMessage_DoesNotBlockDelivery(t *testing.T) {
	w := &fakeWriter{hold: make(chan struct{})}
	p, c := newTestPublisher(w)

	delivered := make(chan struct{})
	go func() {
		p.handleMessage(c, fakeMessage{topic: "heatmiser/2/set/target", payload: []byte("21")})
		p.handleMessage(c, fakeMessage{topic: "heatmiser/3/set/mode", payload: []byte("off")})
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message handler blocked on a running write")
	}
	if calls := w.recorded(); len(calls) != 0 {
		t.Fatalf("writes finished while held: %+v", calls)
	}

	close(w.hold)
	p.Close()

	if calls := w.recorded(); len(calls) != 2 {
		t.Errorf("calls after Close = %+v, want 2", calls)
	}
}

func TestClose_AnnouncesOffline(t *testing.T) {
	p, c := newTestPublisher(&fakeWriter{})
	c.connected = true

	p.Close()

	if len(c.published) != 1 || string(c.published[0].payload) != "offline" || !c.published[0].retained {
		t.Errorf("published = %+v", c.published)
	}
	if !c.disconnected {
		t.Error("client not disconnected")
	}
}
