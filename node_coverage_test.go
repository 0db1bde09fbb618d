package kontrol

import "testing"

var nodeSink []Ctrl

func TestCtrlMethods(t *testing.T) {
	nodeSink = []Ctrl{
		Pure{},
		Call{},
		Eval{},
		Map{},
		FlatMap{},
		Handle{},
		Perform{},
		Resume{},
		ResumeError{},
		Transfer{},
		TransferError{},
		Delegate{},
		Pass{},
		GetHandlers{},
		GetCallStack{},
		GetContinuation{},
		CreateContinuation{},
		ResumeContinuation{},
		Async{},
		Fail{},
	}
	for _, n := range nodeSink {
		n.ctrl()
	}
}

var stepSink []step

func TestStepMethods(t *testing.T) {
	stepSink = []step{
		bindStep{},
		mapStep{},
		(*callStep)(nil),
	}
	for _, s := range stepSink {
		s.step()
	}
}
