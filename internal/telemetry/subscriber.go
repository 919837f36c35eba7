package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/driveaway/driveaway/internal/booking"
)

// LocationTopic is the MQTT topic pattern tracking devices publish to:
// bookings/<booking-id>/location.
const LocationTopic = "bookings/+/location"

// LocationUpdate is the device payload. Pointers distinguish a missing
// coordinate from zero.
type LocationUpdate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Subscriber bridges device location telemetry from MQTT into the booking
// lifecycle engine. Devices are trusted at the broker boundary; no
// per-booking ownership check is applied here.
type Subscriber struct {
	client mqtt.Client
	engine *booking.Engine
}

// StartSubscriber connects to the broker and subscribes to booking
// location updates.
func StartSubscriber(brokerURL string, engine *booking.Engine) (*Subscriber, error) {
	s := &Subscriber{engine: engine}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("driveaway-telemetry").
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	if token := s.client.Subscribe(LocationTopic, 1, s.handleMessage); token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return nil, fmt.Errorf("mqtt subscribe: %w", token.Error())
	}

	log.WithField("topic", LocationTopic).Info("telemetry subscriber started")
	return s, nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	bookingID, ok := bookingIDFromTopic(msg.Topic())
	if !ok {
		log.WithField("topic", msg.Topic()).Warn("unexpected telemetry topic")
		return
	}

	var update LocationUpdate
	if err := json.Unmarshal(msg.Payload(), &update); err != nil {
		log.WithField("booking_id", bookingID).WithError(err).Warn("invalid telemetry payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.engine.UpdateLocation(ctx, bookingID, update.Latitude, update.Longitude); err != nil {
		log.WithField("booking_id", bookingID).WithError(err).Warn("telemetry location update failed")
	}
}

// bookingIDFromTopic extracts the booking id from bookings/<id>/location.
func bookingIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "bookings" || parts[2] != "location" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
