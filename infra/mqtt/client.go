// Package mqtt carries drafting traffic between agents over an MQTT broker.
// Every agent owns one inbound topic, <prefix>/<uuid>, and peers publish
// there directly. Deliveries are best effort: a lost message is recovered by
// the next evaluation round, so there is no retry or acknowledgment layer.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ylztf/LWI/core/model"
	"github.com/ylztf/LWI/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	TLSConfig   *tls.Config     `json:"-"`
}

const defaultTopicPrefix = "lwi/agent"

// DraftHandler consumes an inbound drafting message.
type DraftHandler func(model.DraftMessage)

// StatusHandler consumes an inbound state report.
type StatusHandler func(model.StatusReport)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient is the broker-backed peer transport.
type PahoClient struct {
	cli    pahoClient
	prefix string
	self   string
	qos    map[string]byte
	logger logger.Logger

	mu       sync.Mutex
	onDraft  DraftHandler
	onStatus StatusHandler
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the agent's own
// inbound topic.
func NewPahoClient(cfg Config, selfUUID string) (*PahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	pc := &PahoClient{
		prefix: prefix,
		self:   selfUUID,
		qos:    cfg.QoS,
		logger: logger,
	}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := pc.qos["inbound"]; ok {
			qos = q
		}
		if token := c.Subscribe(pc.topicFor(pc.self), qos, pc.onMessage); token.Wait() && token.Error() != nil {
			logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// OnDraft registers the handler for inbound drafting messages.
func (p *PahoClient) OnDraft(h DraftHandler) {
	p.mu.Lock()
	p.onDraft = h
	p.mu.Unlock()
}

// OnStatus registers the handler for inbound state reports.
func (p *PahoClient) OnStatus(h StatusHandler) {
	p.mu.Lock()
	p.onStatus = h
	p.mu.Unlock()
}

func (p *PahoClient) topicFor(uuid string) string {
	return fmt.Sprintf("%s/%s", p.prefix, uuid)
}

func (p *PahoClient) onMessage(_ paho.Client, msg paho.Message) {
	payload := msg.Payload()
	p.mu.Lock()
	onDraft, onStatus := p.onDraft, p.onStatus
	p.mu.Unlock()

	if model.IsStatusReport(payload) {
		var report model.StatusReport
		if err := json.Unmarshal(payload, &report); err != nil {
			p.logger.Errorf("failed to decode state report: %v", err)
			return
		}
		if onStatus != nil {
			onStatus(report)
		}
		return
	}

	var draft model.DraftMessage
	if err := json.Unmarshal(payload, &draft); err != nil {
		p.logger.Errorf("failed to decode drafting message: %v", err)
		return
	}
	if onDraft != nil {
		onDraft(draft)
	}
}

// Send publishes a drafting message to the peer's inbound topic. The publish
// is attempted once; failures surface to the caller and are never retried.
func (p *PahoClient) Send(peerUUID string, msg model.DraftMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.publish(p.topicFor(peerUUID), "draft", payload)
}

// SendStatus publishes a state report to the peer's inbound topic.
func (p *PahoClient) SendStatus(peerUUID string, report model.StatusReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return p.publish(p.topicFor(peerUUID), "status", payload)
}

func (p *PahoClient) publish(topic, class string, payload []byte) error {
	qos := byte(0)
	if q, ok := p.qos[class]; ok {
		qos = q
	}
	token := p.cli.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	p.logger.Debugf("published %s message to %s", class, topic)
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
