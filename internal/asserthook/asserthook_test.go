package asserthook_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/asserthook"
	"github.com/covlang/scriptcov/internal/classify"
	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/model"
)

func newClassifier() *classify.Classifier {
	return classify.New(classify.Config{SourceExtens: []string{".lua"}})
}

func TestDefaultFrameParser(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	trace := "stack traceback:\n\twidget_test.lua:12: in function <widget_test.lua:10>\n\twidget.lua:5: in function 'add'\n\t[C]: in function 'assert'"
	frames := asserthook.DefaultFrameParser(trace)

	g.Expect(frames).To(HaveLen(2))
	g.Expect(frames[0]).To(Equal(asserthook.Frame{Path: "widget_test.lua", Line: 12}))
	g.Expect(frames[1]).To(Equal(asserthook.Frame{Path: "widget.lua", Line: 5}))
}

func TestHook(t *testing.T) {
	t.Parallel()

	t.Run("SuccessfulVerifyMarksTestAndSubjectLinesCovered", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		global := model.NewGlobalState()
		v := &hostiface.FakeVerifier{Result: true}
		h := asserthook.New(v, global, newClassifier(), asserthook.DefaultFrameParser, []string{"internal/"})

		trace := "widget_test.lua:12: in function <widget_test.lua:10>\nwidget.lua:5: in function 'add'"
		g.Expect(h.Verify(1, 1, trace)).To(BeTrue())

		test := global.Get("widget_test.lua")
		subject := global.Get("widget.lua")
		g.Expect(test).NotTo(BeNil())
		g.Expect(subject).NotTo(BeNil())
		g.Expect(test.Tracking.Covered[12]).To(BeTrue())
		g.Expect(subject.Tracking.Covered[5]).To(BeTrue())
		g.Expect(subject.Tracking.Executed[5]).To(BeTrue()) // covered implies executed
	})

	t.Run("FailedVerifyMarksNothing", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		global := model.NewGlobalState()
		v := &hostiface.FakeVerifier{Result: false}
		h := asserthook.New(v, global, newClassifier(), asserthook.DefaultFrameParser, nil)

		g.Expect(h.Verify(1, 2, "widget_test.lua:12:")).To(BeFalse())
		g.Expect(global.Get("widget_test.lua")).To(BeNil())
	})

	t.Run("NoSubjectFrameMarksOnlyTestLine", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		global := model.NewGlobalState()
		v := &hostiface.FakeVerifier{Result: true}
		h := asserthook.New(v, global, newClassifier(), asserthook.DefaultFrameParser, []string{"internal/"})

		trace := "widget_test.lua:12: in function <widget_test.lua:10>\ninternal/assert.lua:40: in function 'assert'"
		g.Expect(h.Verify(1, 1, trace)).To(BeTrue())

		g.Expect(global.Get("widget_test.lua").Tracking.Covered[12]).To(BeTrue())
		g.Expect(global.Get("internal/assert.lua")).To(BeNil())
	})
}
