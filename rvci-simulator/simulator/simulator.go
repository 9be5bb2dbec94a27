package simulator

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Simulator emulates the mixer hardware: it holds one raw value per
// channel and emits the pipe-delimited frame at a fixed rate, plus
// button lines on demand. Scenario scripts drive the values.
type Simulator struct {
	mu           sync.Mutex
	values       []float64
	valueMax     float64
	extraLines   []string
	log          *log.Logger
	shutdownChan chan struct{}
	stopOnce     sync.Once
}

func NewSimulator(channels int, valueMax float64, logger *log.Logger) *Simulator {
	return &Simulator{
		values:       make([]float64, channels),
		valueMax:     valueMax,
		log:          logger,
		shutdownChan: make(chan struct{}),
	}
}

func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

func (s *Simulator) setValue(ch int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch < 0 || ch >= len(s.values) {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > s.valueMax {
		v = s.valueMax
	}
	s.values[ch] = v
}

// queueLine schedules a raw line (button press, injected garbage) to be
// sent instead of the next frame.
func (s *Simulator) queueLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extraLines = append(s.extraLines, line)
}

// nextLine produces the next wire line: a queued raw line if one is
// pending, otherwise the current frame.
func (s *Simulator) nextLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.extraLines) > 0 {
		line := s.extraLines[0]
		s.extraLines = s.extraLines[1:]
		return line
	}
	fields := make([]string, len(s.values))
	for i, v := range s.values {
		fields[i] = strconv.Itoa(int(v))
	}
	return strings.Join(fields, "|")
}

// RunScenario executes a script of WAIT/SET/RAMP/PRESS/RAW commands, one
// per line, '#' for comments.
func (s *Simulator) RunScenario(filePath string) {
	s.log.Printf("SCENARIO: Starting script '%s'", filePath)
	file, err := os.Open(filePath)
	if err != nil {
		s.log.Printf("SCENARIO ERROR: Could not open file: %v", err)
		return
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		command := strings.ToUpper(parts[0])
		args := parts[1:]
		s.log.Printf("SCENARIO: Executing line %d: %s", lineNumber, line)
		switch command {
		case "WAIT":
			duration, _ := strconv.ParseFloat(args[0], 64)
			time.Sleep(time.Duration(duration * float64(time.Second)))
		case "SET":
			ch, _ := strconv.Atoi(args[0])
			val, _ := strconv.ParseFloat(args[1], 64)
			s.setValue(ch, val)
		case "RAMP":
			ch, _ := strconv.Atoi(args[0])
			startVal, _ := strconv.ParseFloat(args[1], 64)
			endVal, _ := strconv.ParseFloat(args[2], 64)
			duration, _ := strconv.ParseFloat(args[3], 64)
			steps := int(duration * 20)
			if steps == 0 {
				steps = 1
			}
			for i := 0; i <= steps; i++ {
				progress := float64(i) / float64(steps)
				s.setValue(ch, startVal+(endVal-startVal)*progress)
				time.Sleep(50 * time.Millisecond)
			}
		case "PRESS":
			slot, _ := strconv.Atoi(args[0])
			s.queueLine(fmt.Sprintf("WORKS %d", slot))
		case "RAW":
			s.queueLine(strings.Join(args, " "))
		default:
			s.log.Printf("SCENARIO WARNING: Unknown command '%s' on line %d", command, lineNumber)
		}
	}
	s.log.Println("SCENARIO: Script finished.")
}

// emit writes wire lines at the hardware's frame rate until the writer
// fails or the simulator stops.
func (s *Simulator) emit(w io.Writer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, "%s\r\n", s.nextLine()); err != nil {
				return err
			}
		case <-s.shutdownChan:
			return nil
		}
	}
}

// RunTCP accepts connections and streams frames to each; the router side
// treats a TCP stream and a serial port identically.
func (s *Simulator) RunTCP(addr string, interval time.Duration) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Fatalf("Failed to listen on %s: %v", addr, err)
	}
	defer listener.Close()
	s.log.Printf("Simulator listening on %s", addr)

	go func() {
		<-s.shutdownChan
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownChan:
				return
			default:
			}
			s.log.Printf("Accept error: %v", err)
			continue
		}
		s.log.Printf("Client connected: %s", conn.RemoteAddr())
		go func(c net.Conn) {
			defer c.Close()
			if err := s.emit(c, interval); err != nil {
				s.log.Printf("Client %s disconnected: %v", c.RemoteAddr(), err)
			}
		}(conn)
	}
}

// RunSerial streams frames over a real or virtual serial port.
func (s *Simulator) RunSerial(portName string, baud int, interval time.Duration) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		s.log.Fatalf("Failed to open %s: %v", portName, err)
	}
	defer port.Close()
	s.log.Printf("Simulator emitting on %s @ %d baud", portName, baud)
	if err := s.emit(port, interval); err != nil {
		s.log.Printf("Serial write error: %v", err)
	}
}
