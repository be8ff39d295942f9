package notification

import (
	"fmt"
	"sync"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/mqtt"
)

// Service bundles the outbound channels enabled in configuration. Disabled
// channels are nil.
type Service struct {
	Email    *EmailSender
	Telegram *TelegramSender
	Events   *MQTTPublisher
}

// NewService builds the channel senders from settings.
func NewService(settings *conf.NotificationSettings, log logger.Logger) (*Service, error) {
	svc := &Service{}
	if settings.Email.Enabled {
		svc.Email = NewEmailSender(settings.Email)
	}
	if settings.Telegram.Enabled {
		svc.Telegram = NewTelegramSender(settings.Telegram)
	}
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings.MQTT, log)
		if err != nil {
			return nil, err
		}
		svc.Events = NewMQTTPublisher(client, settings.MQTT.TopicPrefix)
	}
	return svc, nil
}

// EnabledChannels lists the channel names that have a sender.
func (s *Service) EnabledChannels() []string {
	if s == nil {
		return nil
	}
	var out []string
	if s.Email != nil {
		out = append(out, "email")
	}
	if s.Telegram != nil {
		out = append(out, "telegram")
	}
	if s.Events != nil {
		out = append(out, "mqtt")
	}
	return out
}

// Close releases channel connections.
func (s *Service) Close() {
	if s != nil && s.Events != nil {
		s.Events.Close()
	}
}

var (
	instance *Service
	initErr  error
	once     sync.Once
	mu       sync.RWMutex
)

// Initialize sets up the global notification service instance. Only the
// first call has any effect; later calls return its outcome.
func Initialize(settings *conf.NotificationSettings, log logger.Logger) (*Service, error) {
	once.Do(func() {
		svc, err := NewService(settings, log)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			initErr = err
			return
		}
		instance = svc
	})

	mu.RLock()
	defer mu.RUnlock()
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

// GetService returns the global notification service instance.
func GetService() *Service {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetServiceForTesting installs service as the global instance. It fails
// when a service is already initialized.
func SetServiceForTesting(service *Service) error {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return fmt.Errorf("notification service already initialized")
	}
	instance = service
	return nil
}

// IsInitialized checks if the notification service has been initialized.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}
