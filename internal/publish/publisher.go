// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

// Package publish mirrors thermostat state to MQTT and turns set commands
// received over MQTT into line writes.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/prtbus/internal/poller"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
)

// Writer is the part of the line the publisher drives
type Writer interface {
	WriteParameter(ctx context.Context, addr uint8, param heatmiser.ParamID, value int) error
	SetMode(ctx context.Context, addr uint8, mode heatmiser.RunMode) error
}

// ErrBadCommand is returned for set commands that cannot be parsed
var ErrBadCommand = errors.New("publish: bad set command")

const (
	publishTimeout = 5 * time.Second
	modeParam      = "mode"
)

// Options configures the MQTT connection
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Publisher is a poller.Sink that publishes retained state and accepts
// <topic>/<id>/set/<param> commands
type Publisher struct {
	client  mqtt.Client
	topic   string
	writer  Writer
	refresh func(ctx context.Context, id uint8)
	logger  zerolog.Logger
	ctx     context.Context

	inflight sync.WaitGroup // set commands still running
}

// New builds a publisher with a paho client. Call Connect to go online.
func New(ctx context.Context, opts Options, writer Writer, logger zerolog.Logger) *Publisher {
	p := &Publisher{
		topic:  opts.Topic,
		writer: writer,
		logger: logger.With().Str("component", "mqtt").Logger(),
		ctx:    ctx,
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetWill(p.statusTopic(), "offline", 1, true)
	co.SetOnConnectHandler(p.onConnect)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn().Err(err).Msg("Lost connection to MQTT broker")
	})

	p.client = mqtt.NewClient(co)
	return p
}

// NewWithClient wraps an existing client
func NewWithClient(ctx context.Context, client mqtt.Client, topic string, writer Writer, logger zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		writer: writer,
		logger: logger.With().Str("component", "mqtt").Logger(),
		ctx:    ctx,
	}
}

// OnWrite registers a callback run after every successful MQTT-driven write,
// typically an immediate re-poll of the device
func (p *Publisher) OnWrite(refresh func(ctx context.Context, id uint8)) {
	p.refresh = refresh
}

// Connect dials the broker. A failed first attempt is retried in the
// background by the client.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt connect to broker timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (p *Publisher) onConnect(c mqtt.Client) {
	p.logger.Info().Msg("Connected to MQTT broker")
	c.Publish(p.statusTopic(), 1, true, "online")

	filter := p.topic + "/+/set/+"
	if token := c.Subscribe(filter, 1, p.handleMessage); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Str("filter", filter).Msg("Subscribe failed")
	}
}

// handleMessage runs each command off paho's delivery goroutine. A write
// holds the line through all its retries and the re-poll.
func (p *Publisher) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	topic, payload := msg.Topic(), msg.Payload()

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.HandleSet(topic, payload); err != nil {
			p.logger.Warn().Err(err).Str("topic", topic).Str("payload", string(payload)).Msg("Set command rejected")
		}
	}()
}

// HandleSet executes one set command. The topic is <topic>/<id>/set/<param>;
// the payload is an integer, or auto/heat/off/on for the mode parameter.
func (p *Publisher) HandleSet(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, p.topic+"/")
	if !ok {
		return fmt.Errorf("%w: topic %q outside %q", ErrBadCommand, topic, p.topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" {
		return fmt.Errorf("%w: topic %q", ErrBadCommand, topic)
	}

	id64, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return fmt.Errorf("%w: device %q", ErrBadCommand, parts[0])
	}
	id := uint8(id64)
	param := parts[2]
	value := strings.TrimSpace(string(payload))

	log := p.logger.With().Uint8("device", id).Str("param", param).Str("value", value).Logger()
	log.Info().Msg("Set command")

	if strings.EqualFold(param, modeParam) {
		err = p.setMode(id, value)
	} else {
		err = p.setParameter(id, param, value)
	}
	if err != nil {
		return err
	}

	if p.refresh != nil {
		p.refresh(p.ctx, id)
	}
	return nil
}

func (p *Publisher) setMode(id uint8, value string) error {
	if strings.EqualFold(value, "on") {
		value = heatmiser.ModeAuto.String()
	}
	mode, err := heatmiser.ParseMode(value)
	if err != nil {
		return err
	}
	return p.writer.SetMode(p.ctx, id, mode)
}

func (p *Publisher) setParameter(id uint8, name, value string) error {
	param, err := heatmiser.ParseParam(name)
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: value %q is not an integer", ErrBadCommand, value)
	}
	return p.writer.WriteParameter(p.ctx, id, param, v)
}

// Publish implements poller.Sink
func (p *Publisher) Publish(s poller.Snapshot) {
	payload, err := json.Marshal(StateFromSnapshot(s))
	if err != nil {
		p.logger.Error().Err(err).Uint8("device", s.ID).Msg("Encode state failed")
		return
	}

	topic := p.StateTopic(s.ID)
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn().Str("topic", topic).Msg("Publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("Publish failed")
	}
}

// StateTopic returns the retained state topic of a device
func (p *Publisher) StateTopic(id uint8) string {
	return fmt.Sprintf("%s/%d/state", p.topic, id)
}

func (p *Publisher) statusTopic() string {
	return p.topic + "/status"
}

// Close waits for running set commands, marks the bridge offline and
// disconnects
func (p *Publisher) Close() {
	p.inflight.Wait()
	if p.client.IsConnected() {
		p.client.Publish(p.statusTopic(), 1, true, "offline").WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(250)
}
