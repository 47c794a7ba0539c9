package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials the NATS server and binds the JetStream context backing
// the durable submission stream.
func ConnectNATS(url string) (*nats.Conn, nats.JetStreamContext, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("unable to bind jetstream context: %w", err)
	}

	return conn, js, nil
}
