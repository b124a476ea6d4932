package pyroscope

import (
	"context"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
)

// Service runs the continuous profiler when it is enabled
type Service struct {
	cfg      *config.Configuration
	logger   *logger.Logger
	profiler *pyroscope.Profiler
}

func NewPyroscopeService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterHooks starts the profiler with the application and stops it on shutdown
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop()
		},
	})
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Pyroscope.Enabled
}

func (s *Service) Start() error {
	if !s.IsEnabled() {
		s.logger.Info("pyroscope profiling is disabled")
		return nil
	}

	pcfg := s.cfg.Pyroscope
	appName := pcfg.ApplicationName
	if appName == "" {
		appName = "tiersync"
	}

	tags := map[string]string{"mode": string(s.cfg.Deployment.Mode)}
	for k, v := range pcfg.Tags {
		tags[k] = v
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   appName,
		ServerAddress:     pcfg.ServerAddress,
		BasicAuthUser:     pcfg.BasicAuthUser,
		BasicAuthPassword: pcfg.BasicAuthPass,
		Tags:              tags,
		SampleRate:        pcfg.SampleRate,
		DisableGCRuns:     pcfg.DisableGCRuns,
		Logger:            s,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		s.logger.Errorw("failed to start pyroscope", "error", err)
		return err
	}

	s.profiler = profiler
	s.logger.Infow("pyroscope profiling started",
		"application_name", appName,
		"server_address", pcfg.ServerAddress,
		"has_basic_auth", pcfg.BasicAuthUser != "",
	)
	return nil
}

func (s *Service) Stop() error {
	if s == nil || s.profiler == nil {
		return nil
	}
	s.logger.Info("stopping pyroscope profiling")
	err := s.profiler.Stop()
	s.profiler = nil
	return err
}

// pyroscope.Logger

func (s *Service) Debugf(format string, args ...interface{}) {}

func (s *Service) Infof(format string, args ...interface{}) {
	s.logger.Infof("[pyroscope] "+format, args...)
}

func (s *Service) Errorf(format string, args ...interface{}) {
	s.logger.Errorf("[pyroscope] "+format, args...)
}
