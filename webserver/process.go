package webserver

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

// process is a spawned server as seen by Manager.
type process interface {
	Pid() int
	// Exited is closed once the process has exited; Err is valid after that.
	Exited() <-chan struct{}
	Err() error
	// Stop asks the process to terminate, and kills it if it is still running after
	// timeout.
	Stop(timeout time.Duration) error
}

type spawnFunc func(ws config.WebServer, logger framework.Logger) (process, error)

type execProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
	output sync.WaitGroup
}

func spawnExec(ws config.WebServer, logger framework.Logger) (process, error) {
	cmd := exec.Command("sh", "-c", ws.Command)
	cmd.Dir = ws.Dir
	cmd.Env = append(os.Environ(), envList(ws.Env)...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, exited: make(chan struct{})}
	p.output.Add(2)
	go p.copyLines(stdout, logger)
	go p.copyLines(stderr, logger)
	go func() {
		// all reads from the pipes must finish before Wait
		p.output.Wait()
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *execProcess) copyLines(r io.Reader, logger framework.Logger) {
	defer p.output.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Printf("%s", scanner.Text())
	}
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Exited() <-chan struct{} {
	return p.exited
}

func (p *execProcess) Err() error {
	select {
	case <-p.exited:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) Stop(timeout time.Duration) error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := terminate(p.cmd); err != nil {
		return killProcess(p.cmd)
	}
	select {
	case <-p.exited:
		return nil
	case <-time.After(timeout):
		if err := killProcess(p.cmd); err != nil {
			return err
		}
		<-p.exited
		return nil
	}
}
