package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location is a geographical position.
type Location struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Cities for realistic trip endpoints
var cities = []Location{
	{Lat: 19.0760, Lon: 72.8777}, // Mumbai
	{Lat: 28.6139, Lon: 77.2090}, // Delhi
	{Lat: 12.9716, Lon: 77.5946}, // Bengaluru
	{Lat: 13.0827, Lon: 80.2707}, // Chennai
	{Lat: 22.5726, Lon: 88.3639}, // Kolkata
	{Lat: 17.3850, Lon: 78.4867}, // Hyderabad
	{Lat: 18.5204, Lon: 73.8567}, // Pune
	{Lat: 23.0225, Lon: 72.5714}, // Ahmedabad
	{Lat: 26.9124, Lon: 75.7873}, // Jaipur
	{Lat: 9.9312, Lon: 76.2673},  // Kochi
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomLocation() Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500)
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// TrackerState is one simulated tracking device bound to a booking.
type TrackerState struct {
	BookingID string
	Position  Location
	Target    Location
	SpeedKmh  float64
}

func (s *TrackerState) pickTarget() {
	for i := 0; i < 10; i++ {
		cand := cities[rand.Intn(len(cities))]
		if haversineKm(s.Position, cand) > 50 {
			s.Target = jitterLocation(cand, 500)
			return
		}
	}
	s.Target = jitterLocation(s.Position, 2000)
}

func (s *TrackerState) step(tickSec float64) {
	dist := haversineKm(s.Position, s.Target)
	if dist < 0.1 {
		s.pickTarget()
		dist = haversineKm(s.Position, s.Target)
	}

	// small speed noise
	s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
	if s.SpeedKmh < 15 {
		s.SpeedKmh = 15
	}
	if s.SpeedKmh > 90 {
		s.SpeedKmh = 90
	}

	travelKm := s.SpeedKmh * (tickSec / 3600.0)
	t := travelKm / dist
	if t > 1 {
		t = 1
	}
	s.Position = lerp(s.Position, s.Target, t)
}

func publishLocation(client mqtt.Client, s *TrackerState) {
	payload, err := json.Marshal(Location{Lat: s.Position.Lat, Lon: s.Position.Lon})
	if err != nil {
		log.WithError(err).Error("Failed to marshal location")
		return
	}

	topic := fmt.Sprintf("bookings/%s/location", s.BookingID)
	token := client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.WithField("booking_id", s.BookingID).WithError(token.Error()).Error("Failed to publish location")
		return
	}

	log.WithFields(log.Fields{
		"booking_id": s.BookingID,
		"lat":        s.Position.Lat,
		"lon":        s.Position.Lon,
		"speed_kmh":  s.SpeedKmh,
	}).Info("Published location")
}

func simulateTracker(client mqtt.Client, s *TrackerState, interval time.Duration) {
	s.pickTarget()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		s.step(interval.Seconds())
		publishLocation(client, s)
	}
}

func main() {
	brokerURL := os.Getenv("MQTT_BROKER")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}

	bookingIDs := strings.Split(os.Getenv("SIM_BOOKING_IDS"), ",")
	var trackers []*TrackerState
	for _, id := range bookingIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		trackers = append(trackers, &TrackerState{
			BookingID: id,
			Position:  randomLocation(),
			SpeedKmh:  30 + rand.Float64()*30,
		})
	}
	if len(trackers) == 0 {
		log.Error("No booking IDs supplied. Set SIM_BOOKING_IDS to a comma-separated list. Exiting.")
		return
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("driveaway-simulator").
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	log.WithFields(log.Fields{
		"broker":   brokerURL,
		"trackers": len(trackers),
		"interval": interval,
	}).Info("Starting tracker simulation")

	for _, s := range trackers {
		go simulateTracker(client, s, interval)
	}

	select {} // Block forever
}
