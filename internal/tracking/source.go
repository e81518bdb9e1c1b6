package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// SimulatedSource walks in a straight line from a start point, emitting one
// fix per Interval. Count limits the number of fixes; zero means unlimited.
type SimulatedSource struct {
	StartLat float64
	StartLng float64
	Bearing  float64 // degrees
	Speed    float64 // m/s
	Accuracy float64 // meters
	Interval time.Duration
	Count    int
	Now      func() time.Time
}

// NewSimulatedSource starts at Central Station heading north east at city bus speed
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		StartLat: 37.3352,
		StartLng: -121.8931,
		Bearing:  45,
		Speed:    8,
		Accuracy: 6,
		Interval: time.Second,
		Now:      time.Now,
	}
}

func (s *SimulatedSource) Fixes(ctx context.Context) (<-chan Fix, error) {
	if s.Interval <= 0 {
		return nil, errors.New("simulated source needs a positive interval")
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}

	out := make(chan Fix)
	go func() {
		defer close(out)

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		lat, lng := s.StartLat, s.StartLng
		step := s.Speed * s.Interval.Seconds()
		for i := 0; s.Count == 0 || i < s.Count; i++ {
			acc, speed, bearing := s.Accuracy, s.Speed, s.Bearing
			fix := Fix{Time: now(), Lat: lat, Lng: lng, Accuracy: &acc, Speed: &speed, Bearing: &bearing}

			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}

			lat, lng = destination(lat, lng, s.Bearing, step)

			if s.Count != 0 && i == s.Count-1 {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// tpv is a gpsd "Time-Position-Velocity" report
type tpv struct {
	Class string   `json:"class"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Eph   *float64 `json:"eph"`
	Speed *float64 `json:"speed"`
	Track *float64 `json:"track"`
}

// ReaderSource reads gpsd style JSON lines. Non-TPV reports, reports without
// a position and malformed lines are skipped.
type ReaderSource struct {
	R   io.Reader
	Log *zap.SugaredLogger
}

func (s *ReaderSource) Fixes(ctx context.Context) (<-chan Fix, error) {
	if s.R == nil {
		return nil, errors.New("reader source has no input")
	}

	out := make(chan Fix)
	go func() {
		defer close(out)

		scanner := bufio.NewScanner(s.R)
		line := 0
		for scanner.Scan() {
			line++
			fix, ok := s.parse(scanner.Bytes(), line)
			if !ok {
				continue
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && s.Log != nil {
			s.Log.Warnf("⚠️  Fix input stopped: %v", err)
		}
	}()
	return out, nil
}

func (s *ReaderSource) parse(data []byte, line int) (Fix, bool) {
	if len(data) == 0 {
		return Fix{}, false
	}

	var report tpv
	if err := json.Unmarshal(data, &report); err != nil {
		if s.Log != nil {
			s.Log.Debugf("Skipping malformed fix on line %d: %v", line, err)
		}
		return Fix{}, false
	}
	if report.Class != "TPV" || report.Lat == nil || report.Lon == nil {
		return Fix{}, false
	}

	ts := time.Now()
	if report.Time != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, report.Time); err == nil {
			ts = parsed
		}
	}

	return Fix{
		Time:     ts,
		Lat:      *report.Lat,
		Lng:      *report.Lon,
		Accuracy: report.Eph,
		Speed:    report.Speed,
		Bearing:  report.Track,
	}, true
}
