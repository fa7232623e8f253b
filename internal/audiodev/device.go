// Package audiodev opens the full-duplex audio stream that feeds the
// engine's ring buffer. It is grounded on the pack's PortAudio examples
// (rayboyd-audio-engine's explicit StreamParameters/device-selection
// shape, san-kum-dynsim's callback-driven processor) rather than on the
// teacher, which only plays files back through Oto.
package audiodev

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"pitchd/internal/ringbuffer"
)

// Device owns a full-duplex PortAudio stream that copies the mono input
// channel into a ring buffer and passes audio through to the output
// channel, exactly as the original Python implementation's
// AudioStream.callback does.
type Device struct {
	stream *portaudio.Stream
	ring   *ringbuffer.Buffer
	info   *portaudio.DeviceInfo
}

// Open initializes PortAudio and opens a full-duplex, mono, float32
// stream at sampleRate/framesPerBuffer, writing captured input into ring.
// Device selection prefers a device whose name contains both
// preferredVendor and "ASIO", then any ASIO device, then the host
// default input/output devices.
func Open(ring *ringbuffer.Buffer, sampleRate float64, framesPerBuffer int, preferredVendor string) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audiodev: initialize: %w", err)
	}

	input, output, err := selectDevices(preferredVendor)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audiodev: select device: %w", err)
	}

	d := &Device{ring: ring, info: input}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   input,
			Channels: 1,
			Latency:  input.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   output,
			Channels: 1,
			Latency:  output.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audiodev: open stream: %w", err)
	}
	d.stream = stream

	return d, nil
}

// selectDevices implements the vendor/ASIO/default cascade from the
// original implementation's _find_asio_device.
func selectDevices(preferredVendor string) (input, output *portaudio.DeviceInfo, err error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, nil, err
	}

	var asio, vendorASIO *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if !strings.Contains(dev.Name, "ASIO") {
			continue
		}
		if asio == nil {
			asio = dev
		}
		if preferredVendor != "" && strings.Contains(dev.Name, preferredVendor) {
			vendorASIO = dev
			break
		}
	}

	chosen := vendorASIO
	if chosen == nil {
		chosen = asio
	}
	if chosen == nil {
		chosen, err = portaudio.DefaultInputDevice()
		if err != nil {
			return nil, nil, err
		}
	}

	out, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, nil, err
	}

	return chosen, out, nil
}

// Name reports the selected input device's name, for logging.
func (d *Device) Name() string {
	if d.info == nil {
		return "unknown"
	}
	return d.info.Name
}

// callback runs on PortAudio's realtime thread. It must not block,
// allocate, or take a heavyweight lock: it copies input into the ring
// buffer and passes it through to the output channel.
func (d *Device) callback(in, out []float32) {
	d.ring.Write(in)
	copy(out, in)
}

// Start begins streaming.
func (d *Device) Start() error {
	return d.stream.Start()
}

// Stop halts the stream, closes it, and terminates PortAudio. It is safe
// to call once during shutdown.
func (d *Device) Stop() error {
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("audiodev: stop: %w", err)
	}
	if err := d.stream.Close(); err != nil {
		return fmt.Errorf("audiodev: close: %w", err)
	}
	return portaudio.Terminate()
}
