package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher pushes solved orientations to an MQTT broker. Messages are
// retained so dashboards see the latest attitude immediately on subscribe.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// Message is the JSON payload published per solution.
type Message struct {
	TimeUTC  string  `json:"time_utc"`
	YawDeg   float64 `json:"yaw_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

const connectTimeout = 10 * time.Second

// NewPublisher connects to broker and returns a ready publisher.
func NewPublisher(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.WithField("broker", broker).Info("mqtt: connected")

	return &Publisher{client: client, topic: topic}, nil
}

// PublishTilt sends one solution, retained at QoS 0. Errors are logged, not
// returned: the broker being briefly away must not disturb the solve path.
func (p *Publisher) PublishTilt(yaw, pitch, roll float64) {
	payload, err := encodeMessage(yaw, pitch, roll)
	if err != nil {
		log.WithError(err).Error("mqtt: marshal failed")
		return
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Warn("mqtt: publish failed")
		}
	}()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func encodeMessage(yaw, pitch, roll float64) ([]byte, error) {
	return json.Marshal(Message{
		TimeUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		YawDeg:   yaw,
		PitchDeg: pitch,
		RollDeg:  roll,
	})
}
