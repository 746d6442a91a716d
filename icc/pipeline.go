package icc

import (
	"fmt"
	"reflect"
	"strings"
)

// The maximum number of channels any transformer may consume or produce
const MaxChannels = 16

// ChannelTransformer maps a vector of input channels to a vector of output
// channels. Transform must not retain out or in and out never aliases in.
type ChannelTransformer interface {
	IOSig() (num_inputs, num_outputs int)
	Transform(out, in []unit_float)
	// Iter yields the primitive transformers this transformer is composed of
	Iter(func(ChannelTransformer) bool)
	String() string
}

type AsMatrix3 interface {
	AsMatrix3() *Matrix3
}

func IfElse[T any](condition bool, if_val T, else_val T) T {
	if condition {
		return if_val
	}
	return else_val
}

// check for interface being nil or the dynamic value it points to being nil
func is_nil(i any) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// Pipeline is a sequence of transformers applied one after the other.
// Adjacent 3x3 matrices are multiplied together as they are appended.
type Pipeline struct {
	transformers []ChannelTransformer
}

var _ ChannelTransformer = (*Pipeline)(nil)

func NewPipeline(c ...ChannelTransformer) *Pipeline {
	p := &Pipeline{}
	p.Append(c...)
	return p
}

func (p *Pipeline) append_one(c ChannelTransformer) {
	if is_nil(c) {
		return
	}
	if _, ok := c.(*IdentityMatrix); ok {
		return
	}
	if cm, ok := c.(AsMatrix3); ok && len(p.transformers) > 0 {
		last := len(p.transformers) - 1
		if pm, ok := p.transformers[last].(AsMatrix3); ok {
			combined := cm.AsMatrix3().Multiply(*pm.AsMatrix3())
			p.transformers[last] = &combined
			return
		}
	}
	p.transformers = append(p.transformers, c)
}

func (p *Pipeline) Append(c ...ChannelTransformer) {
	for _, x := range c {
		if is_nil(x) {
			continue
		}
		x.Iter(func(q ChannelTransformer) bool {
			p.append_one(q)
			return true
		})
	}
}

func (p *Pipeline) Len() int { return len(p.transformers) }

func (p *Pipeline) Transformers() []ChannelTransformer { return p.transformers }

func (p *Pipeline) Iter(f func(ChannelTransformer) bool) {
	for _, t := range p.transformers {
		if !f(t) {
			return
		}
	}
}

func (p *Pipeline) IOSig() (int, int) {
	if len(p.transformers) == 0 {
		return 0, 0
	}
	i, _ := p.transformers[0].IOSig()
	_, o := p.transformers[len(p.transformers)-1].IOSig()
	return i, o
}

// IsSuitableFor checks that the channel counts of every stage line up
func (p *Pipeline) IsSuitableFor(i, o int) bool {
	for _, t := range p.transformers {
		qi, qo := t.IOSig()
		if qi != i {
			return false
		}
		i = qo
	}
	return i == o
}

func (p *Pipeline) Transform(out, in []unit_float) {
	if len(p.transformers) == 0 {
		copy(out, in)
		return
	}
	var a, b [MaxChannels]unit_float
	src := in
	last := len(p.transformers) - 1
	for i, t := range p.transformers {
		if i == last {
			t.Transform(out, src)
			return
		}
		dst := IfElse(i%2 == 0, a[:], b[:])
		t.Transform(dst, src)
		src = dst
	}
}

// TransformDebug calls f with the input and output of every stage
func (p *Pipeline) TransformDebug(out, in []unit_float, f func(in, out []unit_float, t ChannelTransformer)) {
	var buf [MaxChannels]unit_float
	src := append([]unit_float(nil), in...)
	for _, t := range p.transformers {
		_, o := t.IOSig()
		t.Transform(buf[:o], src)
		f(src, buf[:o], t)
		src = append(src[:0], buf[:o]...)
	}
	copy(out, src)
}

func transformers_as_string(t ...ChannelTransformer) string {
	items := make([]string, len(t))
	for i, t := range t {
		items[i] = t.String()
	}
	return strings.Join(items, " → ")
}

func (p *Pipeline) String() string {
	if len(p.transformers) == 0 {
		return "Pipeline{}"
	}
	return fmt.Sprintf("Pipeline{ %s }", transformers_as_string(p.transformers...))
}
