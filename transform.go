package cms

import (
	"fmt"
	"runtime"

	"github.com/kovidgoyal/go-parallel"

	"github.com/f-spot/cms/colorconv"
	"github.com/f-spot/cms/icc"
	"github.com/f-spot/cms/internal/handle"
)

// Flags modify how a Transform is built, the values are those of lcms
type Flags uint32

const (
	// Evaluate the full chain of profiles for every pixel
	NoPrecalc Flags = 0x0100
	// Only repack pixels from the input to the output format
	NullTransform  Flags = 0x0200
	HighResPrecalc Flags = 0x0400
	LowResPrecalc  Flags = 0x0800
	// Accepted for compatibility, no gamut alarm is produced
	GamutCheck             Flags = 0x1000
	BlackPointCompensation Flags = 0x2000
	// Copy extra channels such as alpha from the input to the output
	CopyAlpha Flags = 0x04000000
)

// Number of pixels below which Apply does not bother to spread work over
// goroutines
const parallel_threshold = 4096

type transform_state struct {
	in, out    *codec
	pipeline   icc.ChannelTransformer
	copy_alpha bool
	desc       string
}

var transforms = handle.NewTable[*transform_state](nil)

// Transform converts pixel buffers between the color spaces of a chain of
// profiles. Once built a Transform holds no mutable state, so Apply can be
// called concurrently from multiple goroutines on distinct buffers.
type Transform struct {
	h handle.Handle
}

// NewTransform creates a transform from the input profile to the output
// profile
func NewTransform(input *Profile, inputFormat Format, output *Profile, outputFormat Format, intent Intent, flags Flags) (*Transform, error) {
	return NewMultiProfileTransform([]*Profile{input, output}, inputFormat, outputFormat, intent, flags)
}

// NewMultiProfileTransform creates a transform that applies each profile in
// turn. Device link and abstract profiles may appear anywhere in the chain.
func NewMultiProfileTransform(profiles []*Profile, inputFormat Format, outputFormat Format, intent Intent, flags Flags) (*Transform, error) {
	if !intent.valid() {
		return nil, errorf(ErrOutOfRange, "unknown rendering intent: %d", intent)
	}
	if flags&CopyAlpha != 0 && inputFormat.Extra() != outputFormat.Extra() {
		return nil, errorf(ErrOutOfRange, "cannot copy extra channels from %s to %s", inputFormat, outputFormat)
	}
	s := &transform_state{copy_alpha: flags&CopyAlpha != 0}
	var err error
	if flags&NullTransform != 0 {
		if inputFormat.Channels() != outputFormat.Channels() {
			return nil, errorf(ErrOutOfRange, "a null transform cannot convert %s to %s", inputFormat, outputFormat)
		}
		if s.in, err = new_codec(inputFormat, 0); err != nil {
			return nil, err
		}
		if s.out, err = new_codec(outputFormat, 0); err != nil {
			return nil, err
		}
		s.desc = "null"
		return new_transform(s), nil
	}
	if len(profiles) == 0 {
		return nil, errorf(ErrOutOfRange, "a transform needs at least one profile")
	}
	ips := make([]*icc.Profile, len(profiles))
	for i, p := range profiles {
		if ips[i], err = p.icc(); err != nil {
			return nil, errorf(err, "profile %d of the transform is not usable", i)
		}
	}
	c, err := build_chain(ips, icc.RenderingIntent(intent), flags&BlackPointCompensation != 0)
	if err != nil {
		return nil, err
	}
	if s.in, err = codec_for(inputFormat, c.entry, "input"); err != nil {
		return nil, err
	}
	if s.out, err = codec_for(outputFormat, c.exit, "output"); err != nil {
		return nil, err
	}
	s.pipeline = c.pipeline
	if grid := precalc_grid(c.entry, flags); grid > 0 {
		if s.pipeline, err = precalculate(c.pipeline, c.entry, c.exit, grid); err != nil {
			return nil, err
		}
	}
	s.desc = fmt.Sprintf("%s → %s %s", IccColorSpace(c.entry), IccColorSpace(c.exit), intent)
	return new_transform(s), nil
}

func new_transform(s *transform_state) *Transform {
	ans := &Transform{h: transforms.Add(s)}
	runtime.SetFinalizer(ans, func(t *Transform) { t.Close() })
	return ans
}

func codec_for(f Format, space icc.ColorSpace, which string) (*codec, error) {
	cs := IccColorSpace(space)
	if pcs, ok := f.PixelType().ColorSpace(); ok && pcs != cs {
		return nil, errorf(ErrOutOfRange, "the %s format %s does not match the color space %s", which, f, cs)
	}
	if f.Channels() != cs.NumChannels() {
		return nil, errorf(ErrOutOfRange, "the %s format %s has %d channels but %s needs %d", which, f, f.Channels(), cs, cs.NumChannels())
	}
	return new_codec(f, cs)
}

type chain struct {
	pipeline    *icc.Pipeline
	entry, exit icc.ColorSpace
}

func media_white(p *icc.Profile) colorconv.Vec3 {
	w, err := p.MediaWhitePoint()
	if err != nil || w.Y <= 0 {
		return colorconv.WhiteD50
	}
	return colorconv.Vec3{w.X, w.Y, w.Z}
}

// pcs_connection converts between the PCS of two adjacent profiles,
// applying absolute intent scaling or black point compensation through XYZ
func pcs_connection(from, to icc.ColorSpace, prev, cur *icc.Profile, intent icc.RenderingIntent, bpc bool) []icc.ChannelTransformer {
	var adjust icc.ChannelTransformer
	switch {
	case intent == icc.AbsoluteColorimetricRenderingIntent:
		wi, wo := media_white(prev), media_white(cur)
		if wi != wo {
			adjust = icc.NewScaleTransformer(wi[0]/wo[0], wi[1]/wo[1], wi[2]/wo[2])
		}
	case bpc:
		bi, bo := prev.BlackPoint(intent), cur.BlackPoint(intent)
		if bi != bo {
			adjust = icc.NewBlackPointCorrection(bi, bo)
		}
	}
	if adjust == nil {
		if from == to {
			return nil
		}
		if from == icc.ColorSpaceLab {
			return []icc.ChannelTransformer{icc.NewLABtoXYZ(icc.D50)}
		}
		return []icc.ChannelTransformer{icc.NewXYZtoLAB(icc.D50)}
	}
	var ans []icc.ChannelTransformer
	if from == icc.ColorSpaceLab {
		ans = append(ans, icc.NewLABtoXYZ(icc.D50))
	}
	ans = append(ans, adjust)
	if to == icc.ColorSpaceLab {
		ans = append(ans, icc.NewXYZtoLAB(icc.D50))
	}
	return ans
}

func build_chain(profiles []*icc.Profile, intent icc.RenderingIntent, bpc bool) (ans chain, err error) {
	ans.pipeline = icc.NewPipeline()
	current := profiles[0].Header.DataColorSpace
	for i, p := range profiles {
		class := p.Header.DeviceClass
		is_link := class == icc.DeviceClassLink || class == icc.DeviceClassAbstract
		is_input := !current.IsPCS()
		var in, out icc.ColorSpace
		if is_link || is_input {
			in, out = p.Header.DataColorSpace, p.Header.ProfileConnectionSpace
		} else {
			in, out = p.Header.ProfileConnectionSpace, p.Header.DataColorSpace
		}
		if i == 0 {
			ans.entry = in
		} else if in != current && !(in.IsPCS() && current.IsPCS()) {
			return ans, errorf(ErrOutOfRange, "profile %d expects %s but the previous profile produces %s", i, IccColorSpace(in), IccColorSpace(current))
		}
		if i > 0 && in.IsPCS() {
			ans.pipeline.Append(pcs_connection(current, in, profiles[i-1], p, intent, bpc)...)
		}
		var t *icc.Pipeline
		switch {
		case is_link:
			t, err = p.CreateDeviceLinkTransformer(intent)
		case is_input:
			t, err = p.CreateTransformerToPCS(intent)
		default:
			t, err = p.CreateTransformerToDevice(intent)
		}
		if err != nil {
			return ans, errorf(fmt.Errorf("%w: %w", ErrInvalidProfile, err), "cannot use profile %d in a transform", i)
		}
		ans.pipeline.Append(t)
		current = out
	}
	ans.exit = current
	return ans, nil
}

func precalc_grid(entry icc.ColorSpace, flags Flags) int {
	if flags&NoPrecalc != 0 || entry.IsPCS() {
		return 0
	}
	hi, lo := flags&HighResPrecalc != 0, flags&LowResPrecalc != 0
	switch entry.NumComponents() {
	case 1:
		return 256
	case 2, 3:
		return if_else(hi, 49, if_else(lo, 17, 33))
	case 4:
		return if_else(hi, 23, if_else(lo, 9, 17))
	}
	return 0
}

// precalculate samples the pipeline into a device link CLUT
func precalculate(p *icc.Pipeline, entry, exit icc.ColorSpace, grid int) (icc.ChannelTransformer, error) {
	ni, no := entry.NumComponents(), exit.NumComponents()
	clut, err := icc.SampleCLUT(ni, no, icc.UniformGrid(ni, grid), func(out, in []float64) {
		p.Transform(out, in)
	})
	if err != nil {
		return nil, errorf(err, "cannot precalculate transform")
	}
	return clut, nil
}

func (t *Transform) state() (*transform_state, error) {
	if t == nil {
		return nil, errorf(ErrClosed, "nil transform")
	}
	s, ok := transforms.Get(t.h)
	if !ok {
		return nil, errorf(ErrClosed, "transform %s has been closed", t.h)
	}
	return s, nil
}

func (s *transform_state) run(in, out []byte, start, limit, n int) {
	var src, dest [icc.MaxChannels]float64
	var extra [8]float64
	for i := start; i < limit; i++ {
		s.in.unpack(in, i, n, src[:])
		if s.pipeline == nil {
			copy(dest[:], src[:s.in.channels])
		} else {
			s.pipeline.Transform(dest[:s.out.channels], src[:s.in.channels])
		}
		s.out.pack(out, i, n, dest[:])
		if s.copy_alpha {
			s.in.read_extra(in, i, n, extra[:])
			s.out.write_extra(out, i, n, extra[:])
		}
	}
}

// Apply transforms n pixels from in to out. The buffers must be laid out
// as described by the input and output formats of the transform and may be
// the same buffer when both formats have the same size.
func (t *Transform) Apply(in, out []byte, n int) error {
	s, err := t.state()
	if err != nil {
		return err
	}
	if n < 0 {
		return errorf(ErrOutOfRange, "invalid number of pixels: %d", n)
	}
	if sz := s.in.buffer_size(n); len(in) < sz {
		return errorf(ErrOutOfRange, "input buffer has %d bytes, %d pixels need %d", len(in), n, sz)
	}
	if sz := s.out.buffer_size(n); len(out) < sz {
		return errorf(ErrOutOfRange, "output buffer has %d bytes, %d pixels need %d", len(out), n, sz)
	}
	if n < parallel_threshold {
		s.run(in, out, 0, n, n)
		return nil
	}
	if err = parallel.Run_in_parallel_over_range(0, func(start, limit int) {
		s.run(in, out, start, limit, n)
	}, 0, n); err != nil {
		return NewError("transform failed", err)
	}
	return nil
}

// Close releases the transform. It is safe to call more than once.
func (t *Transform) Close() {
	if t != nil && transforms.Release(t.h) {
		runtime.SetFinalizer(t, nil)
	}
}

func (t *Transform) String() string {
	s, err := t.state()
	if err != nil {
		return "Transform{closed}"
	}
	return fmt.Sprintf("Transform{%s %s → %s %s}", t.h, s.in.format, s.out.format, s.desc)
}
