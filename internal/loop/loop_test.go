package loop

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/ports"
	"github.com/san-kum/pidloop/internal/settings"
)

var t0 = time.Unix(1000, 0)

func proportional(kp float64, out joints.Domain) settings.Channel {
	c := settings.DefaultChannel()
	c.PID.Kp = kp
	c.OutputDomain = out
	return c
}

func commands(d joints.Domain, values ...float64) joints.CommandSample {
	s := joints.CommandSample{Channels: make([]joints.Command, len(values))}
	for i, v := range values {
		s.Channels[i] = joints.Command{Domain: d, Value: v}
	}
	return s
}

func statuses(at time.Time, d joints.Domain, values ...float64) joints.StatusSample {
	s := joints.StatusSample{Time: at, Channels: make([]joints.Status, len(values))}
	for i, v := range values {
		s.Channels[i] = joints.Status{Primary: joints.UnknownReading(), External: joints.UnknownReading()}
		s.Channels[i].Primary.Set(d, v)
	}
	return s
}

type recordingHook struct {
	ctxs []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

func (h *recordingHook) at(pos *HookPos) []HookCtx {
	var out []HookCtx
	for _, c := range h.ctxs {
		if c.Pos == pos {
			out = append(out, c)
		}
	}
	return out
}

var _ = Describe("Loop", func() {
	var (
		store   *settings.Store
		cmdPort *ports.CommandPort
		stPort  *ports.StatusPort
		outPort *ports.OutputPort
		diaPort *ports.DiagnosticPort
		hook    *recordingHook
		l       *Loop
	)

	build := func(channels ...settings.Channel) {
		var err error
		store, err = settings.NewStore(channels)
		Expect(err).ToNot(HaveOccurred())

		cmdPort = ports.NewCommandPort("cmd")
		stPort = ports.NewStatusPort("status")
		outPort = ports.NewOutputPort("out")
		diaPort = ports.NewDiagnosticPort("diag")
		hook = &recordingHook{}

		l = New(Config{
			Commands:    cmdPort,
			Status:      stPort,
			Outputs:     outPort,
			Diagnostics: diaPort,
			Settings:    store,
		})
		l.AcceptHook(hook)
	}

	run := func(channels ...settings.Channel) {
		build(channels...)
		Expect(l.Configure()).To(Succeed())
		Expect(l.Start()).To(Succeed())
	}

	readOutput := func() (joints.OutputSample, ports.FlowStatus) {
		var s joints.OutputSample
		fs := outPort.Read(&s)
		return s, fs
	}

	Context("lifecycle", func() {
		BeforeEach(func() {
			build(proportional(1, joints.Effort), proportional(1, joints.Effort))
		})

		It("should start unconfigured", func() {
			Expect(l.State()).To(Equal(Unconfigured))
			Expect(l.NumChannels()).To(Equal(0))
		})

		It("should refuse to start before configure", func() {
			err := l.Start()
			Expect(errors.Is(err, ErrInvalidTransition)).To(BeTrue())
			Expect(l.State()).To(Equal(Unconfigured))
		})

		It("should size channels on configure", func() {
			Expect(l.Configure()).To(Succeed())
			Expect(l.State()).To(Equal(Configured))
			Expect(l.NumChannels()).To(Equal(2))
		})

		It("should reject a channel count change once configured", func() {
			Expect(l.Configure()).To(Succeed())

			err := l.UpdateSettings([]settings.Channel{
				proportional(1, joints.Effort), proportional(1, joints.Effort), proportional(1, joints.Effort),
			})
			Expect(errors.Is(err, ErrReconfigurationRejected)).To(BeTrue())
			Expect(errors.Is(err, settings.ErrChannelCountChanged)).To(BeTrue())
			Expect(store.Current()).To(HaveLen(2))

			Expect(l.Start()).To(Succeed())
			Expect(l.NumChannels()).To(Equal(2))
		})

		It("should accept a channel count change only after cleanup", func() {
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())
			Expect(l.Stop()).To(Succeed())

			one := []settings.Channel{proportional(1, joints.Effort)}
			Expect(errors.Is(l.UpdateSettings(one), ErrReconfigurationRejected)).To(BeTrue())

			Expect(l.Cleanup()).To(Succeed())
			Expect(l.UpdateSettings(one)).To(Succeed())
			Expect(l.Configure()).To(Succeed())
			Expect(l.NumChannels()).To(Equal(1))
			Expect(l.Start()).To(Succeed())
		})

		It("should not cycle unless running", func() {
			Expect(l.Configure()).To(Succeed())
			cmdPort.Write(commands(joints.Position, 1, 1))
			stPort.Write(statuses(t0, joints.Position, 0, 0))

			Expect(l.Update(t0)).To(Succeed())

			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
			Expect(l.Cycle()).To(BeZero())
		})

		It("should walk through stop, restart and cleanup", func() {
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())

			Expect(l.Stop()).To(Succeed())
			Expect(l.State()).To(Equal(Stopped))

			Expect(l.Start()).To(Succeed())
			Expect(l.Stop()).To(Succeed())
			Expect(l.Cleanup()).To(Succeed())
			Expect(l.State()).To(Equal(Unconfigured))
			Expect(l.NumChannels()).To(Equal(0))
		})

		It("should reject cleanup while running", func() {
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())
			Expect(errors.Is(l.Cleanup(), ErrInvalidTransition)).To(BeTrue())
		})

		It("should report transitions to hooks", func() {
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())

			states := []State{}
			for _, c := range hook.at(HookPosTransition) {
				states = append(states, c.State)
			}
			Expect(states).To(Equal([]State{Configured, Running}))
		})
	})

	Context("when cycling", func() {
		It("should track a position target with proportional effort", func() {
			run(proportional(1, joints.Effort), proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 5, 5))

			for i := 0; i < 2; i++ {
				at := t0.Add(time.Duration(i) * time.Second)
				stPort.Write(statuses(at, joints.Position, 0, 0))
				Expect(l.Update(at)).To(Succeed())

				out, fs := readOutput()
				Expect(fs).To(Equal(ports.NewData))
				Expect(out.Time).To(Equal(at))
				Expect(out.Channels).To(Equal([]joints.Output{
					{Domain: joints.Effort, Value: 5},
					{Domain: joints.Effort, Value: 5},
				}))
			}

			var diag joints.DiagnosticSample
			Expect(diaPort.Read(&diag)).To(Equal(ports.NewData))
			Expect(diag.Cycle).To(Equal(uint64(2)))
			Expect(diag.Channels[0].PID.Integral).To(BeZero())
			Expect(diag.Channels[0].Updated).To(BeTrue())
		})

		It("should limit the target rate", func() {
			ch := proportional(1, joints.Effort)
			ch.Ramp = 1
			run(ch)

			cmdPort.Write(commands(joints.Position, 0))
			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())

			cmdPort.Write(commands(joints.Position, 10))
			stPort.Write(statuses(t0.Add(time.Second), joints.Position, 0))
			Expect(l.Update(t0.Add(time.Second))).To(Succeed())

			var diag joints.DiagnosticSample
			diaPort.Read(&diag)
			Expect(diag.Channels[0].Target).To(Equal(10.0))
			Expect(diag.Channels[0].Ramped).To(BeNumerically("~", 1, 1e-12))

			out, _ := readOutput()
			Expect(out.Channels[0].Value).To(BeNumerically("~", 1, 1e-12))
		})

		DescribeTable("should measure the requested domain",
			func(d joints.Domain) {
				run(proportional(1, joints.Raw))

				st := joints.StatusSample{Time: t0, Channels: []joints.Status{{
					Primary:  joints.Reading{Position: 1, Speed: 1, Effort: 1, Raw: 1, Acceleration: 1},
					External: joints.UnknownReading(),
				}}}
				st.Channels[0].Primary.Set(d, 0)

				cmdPort.Write(commands(d, 0))
				stPort.Write(st)
				Expect(l.Update(t0)).To(Succeed())

				out, _ := readOutput()
				Expect(out.Channels[0]).To(Equal(joints.Output{Domain: joints.Raw, Value: 0}))
			},
			Entry("position", joints.Position),
			Entry("speed", joints.Speed),
			Entry("effort", joints.Effort),
			Entry("raw", joints.Raw),
			Entry("acceleration", joints.Acceleration),
		)

		It("should read the external source when selected", func() {
			ch := proportional(1, joints.Effort)
			ch.UseExternal = true
			run(ch)

			st := statuses(t0, joints.Position, 100)
			st.Channels[0].External.Position = 2

			cmdPort.Write(commands(joints.Position, 5))
			stPort.Write(st)
			Expect(l.Update(t0)).To(Succeed())

			out, _ := readOutput()
			Expect(out.Channels[0].Value).To(Equal(3.0))
		})

		It("should keep using the last command", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 5))

			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())
			stPort.Write(statuses(t0.Add(time.Second), joints.Position, 1))
			Expect(l.Update(t0.Add(time.Second))).To(Succeed())

			out, fs := readOutput()
			Expect(fs).To(Equal(ports.NewData))
			Expect(out.Channels[0].Value).To(Equal(4.0))
		})
	})

	Context("when inputs are missing", func() {
		It("should skip without a command", func() {
			run(proportional(1, joints.Effort))
			stPort.Write(statuses(t0, joints.Position, 0))

			Expect(l.Update(t0)).To(Succeed())

			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
			skipped := hook.at(HookPosSkipped)
			Expect(skipped).To(HaveLen(1))
			Expect(skipped[0].Reason).To(Equal(SkipNoCommand))
			Expect(l.State()).To(Equal(Running))
		})

		It("should skip when no new status arrived", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 5))
			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())
			readOutput()

			Expect(l.Update(t0.Add(time.Second))).To(Succeed())

			_, fs := readOutput()
			Expect(fs).To(Equal(ports.OldData))
			skipped := hook.at(HookPosSkipped)
			Expect(skipped).To(HaveLen(1))
			Expect(skipped[0].Reason).To(Equal(SkipStaleStatus))
		})

		It("should warm up a derived speed before publishing", func() {
			ch := proportional(1, joints.Effort)
			ch.Derive = true
			run(ch)
			cmdPort.Write(commands(joints.Speed, 3))

			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())
			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
			Expect(hook.at(HookPosSkipped)[0].Reason).To(Equal(SkipColdStart))

			at := t0.Add(100 * time.Millisecond)
			stPort.Write(statuses(at, joints.Position, 0.1))
			Expect(l.Update(at)).To(Succeed())

			out, fs := readOutput()
			Expect(fs).To(Equal(ports.NewData))
			Expect(out.Channels[0].Value).To(BeNumerically("~", 2, 1e-9))
		})

		It("should publish warm channels while others warm up", func() {
			derived := proportional(1, joints.Effort)
			derived.Derive = true
			run(proportional(1, joints.Effort), derived)

			cmdPort.Write(joints.CommandSample{Channels: []joints.Command{
				{Domain: joints.Position, Value: 5},
				{Domain: joints.Speed, Value: 1},
			}})
			stPort.Write(statuses(t0, joints.Position, 0, 0))
			Expect(l.Update(t0)).To(Succeed())

			out, fs := readOutput()
			Expect(fs).To(Equal(ports.NewData))
			Expect(out.Channels[0]).To(Equal(joints.Output{Domain: joints.Effort, Value: 5}))
			Expect(out.Channels[1].Domain).To(Equal(joints.Unset))
			Expect(math.IsNaN(out.Channels[1].Value)).To(BeTrue())

			var diag joints.DiagnosticSample
			diaPort.Read(&diag)
			Expect(diag.Channels[1].Updated).To(BeFalse())
		})
	})

	Context("when inputs are invalid", func() {
		It("should fault on a command size mismatch", func() {
			run(proportional(1, joints.Effort), proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 1, 2, 3))
			stPort.Write(statuses(t0, joints.Position, 0, 0))

			err := l.Update(t0)
			Expect(errors.Is(err, ErrSizeMismatch)).To(BeTrue())
			Expect(l.State()).To(Equal(Faulted))
			Expect(l.Fault()).To(MatchError(err))

			var cerr *CycleError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Channel).To(Equal(-1))
			Expect(cerr.Cycle).To(Equal(uint64(1)))

			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
			Expect(hook.at(HookPosFault)).To(HaveLen(1))
		})

		It("should fault on a status size mismatch", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 1))
			stPort.Write(statuses(t0, joints.Position, 0, 0))

			Expect(errors.Is(l.Update(t0), ErrSizeMismatch)).To(BeTrue())
			Expect(l.State()).To(Equal(Faulted))
		})

		DescribeTable("should fault on an unusable command",
			func(cmd joints.Command) {
				run(proportional(1, joints.Effort))
				cmdPort.Write(joints.CommandSample{Channels: []joints.Command{cmd}})
				stPort.Write(statuses(t0, joints.Position, 0))

				err := l.Update(t0)
				Expect(errors.Is(err, ErrInvalidInputDomain)).To(BeTrue())
				Expect(IsFatal(err)).To(BeTrue())

				var cerr *CycleError
				Expect(errors.As(err, &cerr)).To(BeTrue())
				Expect(cerr.Channel).To(Equal(0))
			},
			Entry("unset domain", joints.Command{Domain: joints.Unset, Value: 1}),
			Entry("unknown value", joints.Command{Domain: joints.Position, Value: joints.Unknown}),
			Entry("infinite target", joints.Command{Domain: joints.Position, Value: math.Inf(1)}),
			Entry("negative infinite target", joints.Command{Domain: joints.Position, Value: math.Inf(-1)}),
		)

		It("should fault on an infinite target even with zero gains", func() {
			run(proportional(0, joints.Effort))
			cmdPort.Write(commands(joints.Position, math.Inf(1)))
			stPort.Write(statuses(t0, joints.Position, 0))

			Expect(errors.Is(l.Update(t0), ErrInvalidInputDomain)).To(BeTrue())
			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
		})

		It("should fault when the measurement is infinite", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 1))
			stPort.Write(statuses(t0, joints.Position, math.Inf(-1)))

			err := l.Update(t0)
			Expect(errors.Is(err, ErrInvalidStatusValue)).To(BeTrue())
			Expect(l.State()).To(Equal(Faulted))
			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))
		})

		It("should fault when the requested measurement is unknown", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Effort, 1))
			stPort.Write(statuses(t0, joints.Position, 0))

			err := l.Update(t0)
			Expect(errors.Is(err, ErrInvalidStatusValue)).To(BeTrue())
			Expect(l.State()).To(Equal(Faulted))
		})

		It("should stay silent while faulted and resume after recovery", func() {
			run(proportional(1, joints.Effort))
			cmdPort.Write(commands(joints.Position, 1, 2))
			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).ToNot(Succeed())

			cmdPort.Write(commands(joints.Position, 1))
			stPort.Write(statuses(t0.Add(time.Second), joints.Position, 0))
			Expect(l.Update(t0.Add(time.Second))).To(Succeed())
			_, fs := readOutput()
			Expect(fs).To(Equal(ports.NoData))

			Expect(l.Recover()).To(Succeed())
			Expect(l.State()).To(Equal(Stopped))
			Expect(l.Fault()).ToNot(HaveOccurred())
			Expect(l.Start()).To(Succeed())

			Expect(l.Update(t0.Add(2 * time.Second))).To(Succeed())
			out, fs := readOutput()
			Expect(fs).To(Equal(ports.NewData))
			Expect(out.Channels[0].Value).To(Equal(1.0))
		})
	})

	Context("when reconfigured while running", func() {
		It("should apply new gains on the next cycle", func() {
			run(proportional(1, joints.Raw))
			cmdPort.Write(commands(joints.Raw, 0.1))
			stPort.Write(statuses(t0, joints.Raw, 0.2))
			Expect(l.Update(t0)).To(Succeed())
			out, _ := readOutput()
			Expect(out.Channels[0].Value).To(BeNumerically("~", -0.1, 1e-12))

			Expect(l.UpdateSettings([]settings.Channel{proportional(0.1, joints.Raw)})).To(Succeed())
			stPort.Write(statuses(t0.Add(time.Second), joints.Raw, 0.2))
			Expect(l.Update(t0.Add(time.Second))).To(Succeed())

			out, _ = readOutput()
			Expect(out.Channels[0].Value).To(BeNumerically("~", -0.01, 1e-12))
			Expect(hook.at(HookPosSettingsApplied)).To(HaveLen(1))
		})

		It("should keep the integral across a gain change", func() {
			ch := proportional(0, joints.Effort)
			ch.PID.Ki = 1
			run(ch)
			cmdPort.Write(commands(joints.Position, 1))

			for i := 0; i < 3; i++ {
				at := t0.Add(time.Duration(i) * time.Second)
				stPort.Write(statuses(at, joints.Position, 0))
				Expect(l.Update(at)).To(Succeed())
			}
			out, _ := readOutput()
			Expect(out.Channels[0].Value).To(BeNumerically("~", 2, 1e-12))

			ch.PID.Kp = 1
			Expect(l.UpdateSettings([]settings.Channel{ch})).To(Succeed())
			at := t0.Add(3 * time.Second)
			stPort.Write(statuses(at, joints.Position, 0))
			Expect(l.Update(at)).To(Succeed())

			out, _ = readOutput()
			Expect(out.Channels[0].Value).To(BeNumerically("~", 4, 1e-12))
		})

		It("should reject a channel count change", func() {
			run(proportional(1, joints.Effort))
			err := l.UpdateSettings([]settings.Channel{
				proportional(2, joints.Effort),
				proportional(2, joints.Effort),
			})
			Expect(errors.Is(err, ErrReconfigurationRejected)).To(BeTrue())
			Expect(errors.Is(err, settings.ErrChannelCountChanged)).To(BeTrue())

			cmdPort.Write(commands(joints.Position, 5))
			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())

			out, _ := readOutput()
			Expect(out.Channels[0].Value).To(Equal(5.0))
			Expect(store.Current()[0].PID.Kp).To(Equal(1.0))
		})

		It("should switch the output domain", func() {
			run(proportional(1, joints.Raw))
			cmdPort.Write(commands(joints.Position, 5))
			stPort.Write(statuses(t0, joints.Position, 0))
			Expect(l.Update(t0)).To(Succeed())

			Expect(l.UpdateSettings([]settings.Channel{proportional(1, joints.Speed)})).To(Succeed())
			stPort.Write(statuses(t0.Add(time.Second), joints.Position, 0))
			Expect(l.Update(t0.Add(time.Second))).To(Succeed())

			out, _ := readOutput()
			Expect(out.Channels).To(Equal([]joints.Output{{Domain: joints.Speed, Value: 5}}))
		})

		It("should clear a retained output when its domain changes", func() {
			derived := proportional(1, joints.Raw)
			derived.Derive = true
			run(proportional(1, joints.Effort), derived)

			cmdPort.Write(joints.CommandSample{Channels: []joints.Command{
				{Domain: joints.Position, Value: 1},
				{Domain: joints.Speed, Value: 1},
			}})
			stPort.Write(statuses(t0, joints.Position, 0, 0))
			Expect(l.Update(t0)).To(Succeed())
			at := t0.Add(time.Second)
			stPort.Write(statuses(at, joints.Position, 0, 0))
			Expect(l.Update(at)).To(Succeed())
			out, _ := readOutput()
			Expect(out.Channels[1]).To(Equal(joints.Output{Domain: joints.Raw, Value: 1}))

			next := store.Current()
			next[1].OutputDomain = joints.Effort
			next[1].UseExternal = true
			Expect(l.UpdateSettings(next)).To(Succeed())

			// The external source restarts the estimator, so channel 1
			// retains its output for this cycle.
			st := statuses(at.Add(time.Second), joints.Position, 0, 0)
			st.Channels[1].External.Position = 0
			stPort.Write(st)
			Expect(l.Update(at.Add(time.Second))).To(Succeed())

			out, _ = readOutput()
			Expect(out.Channels[1].Domain).To(Equal(joints.Unset))
			Expect(math.IsNaN(out.Channels[1].Value)).To(BeTrue())
		})
	})

	Context("with mocked ports", func() {
		var (
			mockCtrl    *gomock.Controller
			commandsIn  *MockCommandReader
			statusIn    *MockStatusReader
			outputs     *MockOutputWriter
			diagnostics *MockDiagnosticWriter
			source      *MockSettingsSource
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			commandsIn = NewMockCommandReader(mockCtrl)
			statusIn = NewMockStatusReader(mockCtrl)
			outputs = NewMockOutputWriter(mockCtrl)
			diagnostics = NewMockDiagnosticWriter(mockCtrl)
			source = NewMockSettingsSource(mockCtrl)

			l = New(Config{
				Commands:    commandsIn,
				Status:      statusIn,
				Outputs:     outputs,
				Diagnostics: diagnostics,
				Settings:    source,
			})
			source.EXPECT().Snapshot().
				Return([]settings.Channel{proportional(2, joints.Effort)}, uint64(1)).
				AnyTimes()
			source.EXPECT().Version().Return(uint64(1)).AnyTimes()
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should not configure when binding fails", func() {
			source.EXPECT().Bind(1).Return(settings.ErrChannelCountChanged)

			err := l.Configure()
			Expect(errors.Is(err, ErrSettingsChanged)).To(BeTrue())
			Expect(l.State()).To(Equal(Unconfigured))
		})

		It("should not start when the settings count changed after configure", func() {
			other := NewMockSettingsSource(mockCtrl)
			l = New(Config{
				Commands:    commandsIn,
				Status:      statusIn,
				Outputs:     outputs,
				Diagnostics: diagnostics,
				Settings:    other,
			})
			other.EXPECT().Snapshot().Return([]settings.Channel{proportional(2, joints.Effort)}, uint64(1))
			other.EXPECT().Bind(1).Return(nil)
			Expect(l.Configure()).To(Succeed())

			other.EXPECT().Snapshot().Return([]settings.Channel{
				proportional(2, joints.Effort), proportional(2, joints.Effort),
			}, uint64(2))
			err := l.Start()
			Expect(errors.Is(err, ErrSettingsChanged)).To(BeTrue())
			Expect(l.State()).To(Equal(Configured))
		})

		It("should not read status without a command", func() {
			source.EXPECT().Bind(1).Return(nil)
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())

			commandsIn.EXPECT().Read(gomock.Any()).Return(ports.NoData)
			statusIn.EXPECT().Read(gomock.Any()).Times(0)
			outputs.EXPECT().Write(gomock.Any()).Times(0)

			Expect(l.Update(t0)).To(Succeed())
		})

		It("should write outputs and diagnostics once per cycle", func() {
			source.EXPECT().Bind(1).Return(nil)
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())

			commandsIn.EXPECT().Read(gomock.Any()).
				DoAndReturn(func(dst *joints.CommandSample) ports.FlowStatus {
					commands(joints.Position, 3).CopyTo(dst)
					return ports.OldData
				})
			statusIn.EXPECT().Read(gomock.Any()).
				DoAndReturn(func(dst *joints.StatusSample) ports.FlowStatus {
					statuses(t0, joints.Position, 1).CopyTo(dst)
					return ports.NewData
				})
			outputs.EXPECT().Write(gomock.Any()).
				Do(func(s joints.OutputSample) {
					Expect(s.Channels).To(Equal([]joints.Output{{Domain: joints.Effort, Value: 4}}))
				})
			diagnostics.EXPECT().Write(gomock.Any()).
				Do(func(s joints.DiagnosticSample) {
					Expect(s.Cycle).To(Equal(uint64(1)))
					Expect(s.Channels[0].Measured).To(Equal(1.0))
				})

			Expect(l.Update(t0)).To(Succeed())
		})

		It("should hold the binding until cleanup", func() {
			source.EXPECT().Bind(1).Return(nil)
			Expect(l.Configure()).To(Succeed())
			Expect(l.Start()).To(Succeed())
			Expect(l.Stop()).To(Succeed())

			source.EXPECT().Unbind()
			Expect(l.Cleanup()).To(Succeed())
		})
	})
})
