package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // auto-register RtMIDI driver
)

// Sender delivers raw MIDI messages to an output. The audio sink depends on
// this instead of a concrete port so tests can capture the wire traffic.
type Sender interface {
	Send(msg midi.Message) error
}

// Output represents a MIDI output connection
type Output struct {
	port drivers.Out
	send func(msg midi.Message) error
}

// ListPorts returns a list of available MIDI output port names
func ListPorts() []string {
	ports := midi.GetOutPorts()
	names := make([]string, len(ports))
	for i, port := range ports {
		names[i] = port.String()
	}
	return names
}

// Open opens a MIDI output port by index
func Open(portIndex int) (*Output, error) {
	port, err := midi.OutPort(portIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get MIDI port %d: %w", portIndex, err)
	}
	return openPort(port)
}

// OpenByName opens the first MIDI output port whose name matches.
func OpenByName(name string) (*Output, error) {
	for _, port := range midi.GetOutPorts() {
		if port.String() == name {
			return openPort(port)
		}
	}
	return nil, fmt.Errorf("no MIDI output port named %q", name)
}

func openPort(port drivers.Out) (*Output, error) {
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return &Output{port: port, send: send}, nil
}

// Close closes the MIDI output port
func (o *Output) Close() error {
	return o.port.Close()
}

// Send delivers a raw MIDI message.
func (o *Output) Send(msg midi.Message) error {
	return o.send(msg)
}
