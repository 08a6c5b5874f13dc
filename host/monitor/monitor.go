// Package monitor drains receiver traffic and publishes position
// reports as JSON over MQTT. Proprietary PUBX solutions come from the
// driver's parsed fix; standard NMEA sentences are decoded directly.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"navcore/m8q"
)

// DefaultTopic is where reports land unless configured otherwise.
const DefaultTopic = "navcore/gps"

// Publisher is the outbound side of the monitor. The MQTT client
// satisfies it in production; tests substitute a recorder.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Report is the JSON shape published per position update.
type Report struct {
	Source     string  `json:"source"`
	Time       string  `json:"time,omitempty"`
	Date       string  `json:"date,omitempty"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	NavStatus  string  `json:"navstat,omitempty"`
	SpeedKnots float64 `json:"speed_knots,omitempty"`
	CourseDeg  float64 `json:"course_deg,omitempty"`
	Satellites int     `json:"satellites,omitempty"`
}

// Monitor pumps one receiver into a publisher.
type Monitor struct {
	dev   *m8q.Device
	pub   Publisher
	topic string
	buf   []byte
}

// New creates a monitor for dev publishing to topic.
func New(dev *m8q.Device, pub Publisher, topic string) *Monitor {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Monitor{
		dev:   dev,
		pub:   pub,
		topic: topic,
		buf:   make([]byte, 512),
	}
}

// Poll drains the pending receiver messages once and publishes a report
// for each position-bearing one. It returns the number published.
// Stream noise is skipped; transport faults propagate.
func (m *Monitor) Poll() (int, error) {
	published := 0
	for m.dev.Ready() {
		n, err := m.dev.ReadMessage(m.buf)
		if err != nil {
			if errors.Is(err, m8q.ErrNoData) {
				break
			}
			if errors.Is(err, m8q.ErrUnknownData) || errors.Is(err, m8q.ErrBadChecksum) ||
				errors.Is(err, m8q.ErrOverflow) {
				continue
			}
			return published, err
		}

		report, ok := m.process(m.buf[:n])
		if !ok {
			continue
		}
		payload, err := json.Marshal(report)
		if err != nil {
			return published, err
		}
		if err := m.pub.Publish(m.topic, payload); err != nil {
			return published, fmt.Errorf("publish: %w", err)
		}
		published++
	}
	return published, nil
}

// process turns one received frame into a report. UBX frames and
// non-position sentences yield no report.
func (m *Monitor) process(frame []byte) (Report, bool) {
	if len(frame) == 0 || frame[0] != '$' {
		return Report{}, false
	}
	line := strings.TrimRight(string(frame), "\r\n")

	if strings.HasPrefix(line, "$PUBX,00,") {
		fix := m.dev.Fix()
		return Report{
			Source:     "pubx",
			Time:       fix.Time,
			Date:       fix.Date,
			Latitude:   fix.Latitude,
			Longitude:  fix.Longitude,
			NavStatus:  fix.NavStatus,
			Satellites: m.dev.Satellites(),
		}, true
	}
	if strings.HasPrefix(line, "$PUBX,") {
		return Report{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Report{}, false
	}
	switch s := sentence.(type) {
	case nmea.RMC:
		return Report{
			Source:     "rmc",
			Time:       s.Time.String(),
			Date:       s.Date.String(),
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			NavStatus:  string(s.Validity),
			SpeedKnots: s.Speed,
			CourseDeg:  s.Course,
		}, true
	case nmea.GGA:
		return Report{
			Source:     "gga",
			Time:       s.Time.String(),
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			NavStatus:  s.FixQuality,
			Satellites: int(s.NumSatellites),
		}, true
	}
	return Report{}, false
}

// Run polls at the given interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := m.Poll()
			if err != nil {
				return err
			}
			if n > 0 {
				log.Printf("published %d report(s) to %s", n, m.topic)
			}
		}
	}
}

type mqttPublisher struct {
	client mqtt.Client
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

// ConnectMQTT connects to a broker and returns a publisher backed by it.
func ConnectMQTT(broker, clientID string) (Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s", broker)
	return &mqttPublisher{client: client}, nil
}
