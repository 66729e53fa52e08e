package tool

// InvokeObservation captures one dispatcher invocation outcome.
type InvokeObservation struct {
	ToolName   string
	RequestID  string
	Format     ResponseFormat
	StatusCode int
	DurationMS int64
	Success    bool
	ErrorCode  string
}

// Observer receives invocation events. Implementations must be safe for
// concurrent use since a dispatcher may serve parallel calls.
type Observer interface {
	ObserveInvoke(observation InvokeObservation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(InvokeObservation)

// ObserveInvoke calls f.
func (f ObserverFunc) ObserveInvoke(observation InvokeObservation) {
	if f != nil {
		f(observation)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveInvoke(InvokeObservation) {}

// MultiObserver fans an observation out to every non-nil observer.
func MultiObserver(observers ...Observer) Observer {
	active := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	switch len(active) {
	case 0:
		return noopObserver{}
	case 1:
		return active[0]
	}
	return multiObserver(active)
}

type multiObserver []Observer

func (m multiObserver) ObserveInvoke(observation InvokeObservation) {
	for _, o := range m {
		o.ObserveInvoke(observation)
	}
}
