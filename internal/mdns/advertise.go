// Package mdns advertises the Beast TCP output port over Bonjour/DNS-SD, so
// a feeder client on the same LAN can discover this receiver without being
// handed an IP and port by hand.
package mdns

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/sirupsen/logrus"
)

// ServiceType is the DNS-SD service type Beast-over-TCP feeders look for.
const ServiceType = "_beast._tcp"

// Advertiser runs a DNS-SD responder for one announced service until
// Stop is called.
type Advertiser struct {
	logger   *logrus.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// Advertise registers name (or a generated default) on port and starts
// responding to mDNS queries in the background. Returns an Advertiser
// whose Stop tears the responder down, or an error if the service or
// responder could not be created.
func Advertise(logger *logrus.Logger, name string, port int) (*Advertiser, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if name == "" {
		name = fmt.Sprintf("go1090-%d", port)
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("mdns: failed to create service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mdns: failed to create responder: %w", err)
	}

	if _, err := responder.Add(service); err != nil {
		return nil, fmt.Errorf("mdns: failed to add service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{logger: logger, cancel: cancel, done: make(chan struct{})}

	logger.WithFields(logrus.Fields{"name": name, "port": port}).Info("mDNS: advertising Beast TCP service")

	go func() {
		defer close(a.done)
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("mDNS responder error")
		}
	}()

	return a, nil
}

// Stop cancels the responder and waits for its goroutine to exit.
func (a *Advertiser) Stop() {
	if a == nil {
		return
	}
	a.cancel()
	<-a.done
}
