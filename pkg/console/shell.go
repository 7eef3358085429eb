package console

import (
	"flag"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell   *ishell.Shell
	Console *Console
}

const (
	shellKey = "$shell"
	prompt   = "esc > "
)

var (
	evalOnly   bool
	outputJSON bool
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// NewShell creates a new shell.
func NewShell(c *Console) *Shell {
	c.OutputJSON = outputJSON
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Console:     c,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(shellCmd(cmd))
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

type contextWriter struct {
	c *ishell.Context
}

func (w contextWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

func shellCmd(cmd *Command) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    cmd.Name,
		Aliases: cmd.Aliases,
		Help:    cmd.Help,
		Func: func(c *ishell.Context) {
			if err := cmd.Run(ShellFrom(c).Console, contextWriter{c: c}, c.Args); err != nil {
				c.Err(err)
			}
		},
	}
}

// Run runs the shell. With args, the single command is executed.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}
