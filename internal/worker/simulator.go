package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/call"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

type SimulatorConfig struct {
	Interval    time.Duration
	Probability float64
	PatientID   string
	PatientName string
	DoctorID    string
	DoctorName  string
}

func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:    15 * time.Second,
		Probability: 0.2,
		PatientID:   "p1",
		PatientName: "Jane Smith",
		DoctorID:    "d1",
		DoctorName:  "Dr. Johnson",
	}
}

// Simulator rings the configured patient at random.
type Simulator struct {
	calls   *call.Service
	config  SimulatorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	rand func() float64
}

// NewSimulator builds a simulator. roll returns values in [0,1); nil uses math/rand.
func NewSimulator(calls *call.Service, config SimulatorConfig, roll func() float64, log *logger.Logger, m *metrics.Metrics) *Simulator {
	def := DefaultSimulatorConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.PatientID == "" {
		config.PatientID, config.PatientName = def.PatientID, def.PatientName
	}
	if config.DoctorID == "" {
		config.DoctorID, config.DoctorName = def.DoctorID, def.DoctorName
	}
	if roll == nil {
		src := rand.New(rand.NewSource(time.Now().UnixNano()))
		roll = src.Float64
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("telemed")
	}
	return &Simulator{
		calls:   calls,
		config:  config,
		rand:    roll,
		logger:  log.WithFields(map[string]interface{}{"worker": "simulator"}),
		metrics: m,
	}
}

func (s *Simulator) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("Starting incoming-call simulator",
		"interval", s.config.Interval.String(), "probability", s.config.Probability)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down incoming-call simulator")
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error(err, "Simulator tick failed")
			}
		}
	}
}

// Tick rings the patient with the configured probability unless a call is
// already open. It returns the created call, or nil.
func (s *Simulator) Tick(ctx context.Context) (*model.Call, error) {
	open, err := s.calls.ActiveOrRingingForPatient(ctx, s.config.PatientID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, nil
	}

	s.mu.Lock()
	roll := s.rand()
	s.mu.Unlock()
	if roll >= s.config.Probability {
		return nil, nil
	}

	c, err := s.calls.CreateRinging(ctx, &model.StartCallRequest{
		PatientID:   s.config.PatientID,
		PatientName: s.config.PatientName,
		DoctorID:    s.config.DoctorID,
		DoctorName:  s.config.DoctorName,
	})
	if err != nil {
		// another process rang first
		if apperrors.IsConflict(err) {
			return nil, nil
		}
		return nil, err
	}

	s.metrics.SimulatedCalls.Inc()
	s.logger.Debug("Simulated incoming call", "call_id", c.ID)
	return c, nil
}
