package control

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
)

// Script errors. Both are recovered inside ScriptController.
var (
	ErrScriptTimeout = errors.New("control: script exceeded time budget")
	ErrScriptResult  = errors.New("control: script returned a malformed action")
)

// ScriptMode selects the script calling convention.
type ScriptMode uint8

const (
	// ScriptFunction treats the source as the body of function(inputs) that
	// returns [left, forward, right].
	ScriptFunction ScriptMode = iota
	// ScriptFrame expects onFrame(state, action) and an optional onStart().
	// action.move takes [forward, left, right].
	ScriptFrame
)

// ParseScriptMode converts a config string to a ScriptMode.
func ParseScriptMode(s string) (ScriptMode, error) {
	switch s {
	case "function", "":
		return ScriptFunction, nil
	case "frame":
		return ScriptFrame, nil
	}
	return 0, fmt.Errorf("control: unknown script mode %q", s)
}

func (m ScriptMode) String() string {
	if m == ScriptFrame {
		return "frame"
	}
	return "function"
}

// Script is a compiled user program. One Script is shared by every script
// agent; each agent runs it in its own runtime.
type Script struct {
	program *goja.Program
	mode    ScriptMode
}

// CompileScript parses source once. Syntax errors are returned here.
func CompileScript(source string, mode ScriptMode) (*Script, error) {
	src := source
	if mode == ScriptFunction {
		src = "(function(inputs) {\n" + source + "\n})"
	}
	prog, err := goja.Compile("script", src, false)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return &Script{program: prog, mode: mode}, nil
}

// Mode returns the calling convention.
func (s *Script) Mode() ScriptMode {
	return s.mode
}

// ScriptParams configures script execution.
type ScriptParams struct {
	Budget   time.Duration // Per-call limit; 0 disables it
	Idle     Action        // Used when no script or no entry point is loaded
	Fallback Action        // Used when a call fails
}

// ScriptParamsFromConfig extracts script settings.
func ScriptParamsFromConfig(cfg *config.Config) ScriptParams {
	cc := cfg.Control
	return ScriptParams{
		Budget:   time.Duration(cc.ScriptBudgetMS) * time.Millisecond,
		Idle:     ClampAction(cc.ScriptIdle),
		Fallback: ClampAction(cc.ScriptFallback),
	}
}

// ScriptController runs a user script for one agent. Failures never escape
// Decide: they are logged once per distinct message and replaced by the
// fallback action.
type ScriptController struct {
	agent  int
	params ScriptParams
	mode   ScriptMode

	vm *goja.Runtime
	fn goja.Callable

	moved      Action
	didMove    bool
	lastReward float32
	lastErr    string
}

// NewScriptController instantiates s in a fresh runtime. A nil script, a
// script that fails to initialize, or a frame script without onFrame yields
// a controller that returns the idle action.
func NewScriptController(agent int, s *Script, p ScriptParams) *ScriptController {
	c := &ScriptController{agent: agent, params: p}
	if s == nil {
		return c
	}
	c.mode = s.mode

	vm := goja.New()
	c.installGlobals(vm)

	err := c.guard(vm, func() error {
		v, err := vm.RunProgram(s.program)
		if err != nil {
			return err
		}
		if s.mode == ScriptFunction {
			fn, ok := goja.AssertFunction(v)
			if !ok {
				return fmt.Errorf("%w: not a function", ErrScriptResult)
			}
			c.fn = fn
			return nil
		}

		fn, ok := goja.AssertFunction(vm.Get("onFrame"))
		if !ok {
			return errors.New("script defines no onFrame function")
		}
		c.fn = fn
		if start, ok := goja.AssertFunction(vm.Get("onStart")); ok {
			_, err := start(goja.Undefined())
			return err
		}
		return nil
	})
	if err != nil {
		c.fn = nil
		c.report(err)
		return c
	}
	c.vm = vm
	return c
}

// installGlobals exposes console.log. The runtime has no host access beyond
// the ECMAScript builtins.
func (c *ScriptController) installGlobals(vm *goja.Runtime) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		slog.Info("script", "agent", c.agent, "msg", strings.Join(parts, " "))
		return goja.Undefined()
	})
	vm.Set("console", console)
}

func (c *ScriptController) Kind() components.ControlType { return components.ControlScript }

// Loaded reports whether the controller has a callable entry point.
func (c *ScriptController) Loaded() bool {
	return c.fn != nil
}

func (c *ScriptController) Decide(in Input) (Decision, error) {
	if c.fn == nil {
		return SteerDecision(c.params.Idle), nil
	}

	var d Decision
	err := c.guard(c.vm, func() error {
		var err error
		if c.mode == ScriptFrame {
			d, err = c.callFrame(in)
		} else {
			d, err = c.callFunction(in)
		}
		return err
	})
	if err != nil {
		c.report(err)
		return SteerDecision(c.params.Fallback), nil
	}
	c.lastErr = ""
	return d, nil
}

func (c *ScriptController) callFunction(in Input) (Decision, error) {
	res, err := c.fn(goja.Undefined(), c.visionArray(in.Sensory))
	if err != nil {
		return Decision{}, err
	}
	a, err := actionFromValue(res)
	if err != nil {
		return Decision{}, err
	}
	return SteerDecision(a), nil
}

func (c *ScriptController) callFrame(in Input) (Decision, error) {
	state := c.vm.NewObject()
	state.Set("vision", c.visionArray(in.Sensory))
	state.Set("gotReward", in.Reward > c.lastReward)
	c.lastReward = in.Reward

	c.didMove = false
	action := c.vm.NewObject()
	action.Set("move", func(call goja.FunctionCall) goja.Value {
		// [forward, left, right] -> [left, forward, right]
		if obj, ok := call.Argument(0).(*goja.Object); ok {
			fwd := toNumber(obj.Get("0"))
			left := toNumber(obj.Get("1"))
			right := toNumber(obj.Get("2"))
			c.moved = ClampAction([]float64{left, fwd, right})
		} else {
			c.moved = Action{}
		}
		c.didMove = true
		return goja.Undefined()
	})

	if _, err := c.fn(goja.Undefined(), state, action); err != nil {
		return Decision{}, err
	}
	if !c.didMove {
		// No move this frame: stop rather than keep the last velocity.
		return SteerDecision(Action{}), nil
	}
	return SteerDecision(c.moved), nil
}

func (c *ScriptController) visionArray(sensory []float32) *goja.Object {
	items := make([]interface{}, len(sensory))
	for i, v := range sensory {
		items[i] = float64(v)
	}
	return c.vm.NewArray(items...)
}

// guard runs f under the time budget and converts interrupts and JS panics
// into errors. An interrupt left over from an earlier call is cleared first,
// and the timer cannot fire once f has returned.
func (c *ScriptController) guard(vm *goja.Runtime, f func() error) (err error) {
	vm.ClearInterrupt()
	if c.params.Budget > 0 {
		var (
			mu   sync.Mutex
			done bool
		)
		timer := time.AfterFunc(c.params.Budget, func() {
			mu.Lock()
			defer mu.Unlock()
			if !done {
				vm.Interrupt(ErrScriptTimeout)
			}
		})
		defer func() {
			timer.Stop()
			mu.Lock()
			done = true
			mu.Unlock()
			vm.ClearInterrupt()
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panic: %v", r)
		}
	}()

	err = f()
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		return fmt.Errorf("%w (%s)", ErrScriptTimeout, c.params.Budget)
	}
	return err
}

// report logs err unless it repeats the previous message.
func (c *ScriptController) report(err error) {
	msg := err.Error()
	if msg == c.lastErr {
		return
	}
	c.lastErr = msg
	slog.Warn("script error", "agent", c.agent, "error", msg)
}

// actionFromValue reads a three-element JS array as [left, forward, right].
func actionFromValue(v goja.Value) (Action, error) {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() != "Array" {
		return Action{}, fmt.Errorf("%w: want an array of 3 numbers", ErrScriptResult)
	}
	if n := obj.Get("length").ToInteger(); n != 3 {
		return Action{}, fmt.Errorf("%w: array length %d, want 3", ErrScriptResult, n)
	}
	raw := make([]float64, 3)
	for i := range raw {
		raw[i] = toNumber(obj.Get(strconv.Itoa(i)))
	}
	return ClampAction(raw), nil
}

// toNumber coerces a JS value like Number(v). Missing elements read as 0.
func toNumber(v goja.Value) float64 {
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	return v.ToFloat()
}
