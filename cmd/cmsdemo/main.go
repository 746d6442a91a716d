package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/f-spot/cms"
	"github.com/f-spot/cms/convert"
	"github.com/f-spot/cms/manager"
	"github.com/f-spot/cms/meta"
)

type options struct {
	config, to, intent   string
	brightness, contrast float64
	hue, saturation      float64
	src_temp, dest_temp  int
	list, version        bool
}

func intent_by_name(name string) (cms.Intent, error) {
	for _, i := range []cms.Intent{cms.Perceptual, cms.RelativeColorimetric, cms.Saturation, cms.AbsoluteColorimetric} {
		if strings.EqualFold(strings.ReplaceAll(i.String(), " ", ""), strings.ReplaceAll(name, "-", "")) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown rendering intent: %s", name)
}

func (o *options) adjusting() bool {
	return o.brightness != 0 || o.contrast != 0 || o.hue != 0 || o.saturation != 0 || o.src_temp != o.dest_temp
}

func destination(m *manager.Manager, name string) (*cms.Profile, error) {
	switch name {
	case "", "sRGB":
		return cms.CreateSRgb(), nil
	case "display":
		return m.DisplayProfile(), nil
	case "output":
		return m.OutputProfile(), nil
	}
	for _, p := range m.Profiles() {
		if p.ProductName() == name || p.ProductDescription() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no color profile named: %s", name)
}

func source_profile(path string) (*cms.Profile, image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	md, stream, err := meta.Load(f)
	var p *cms.Profile
	if err != nil {
		slog.Warn("cannot read color metadata", "path", path, "err", err)
	} else if p, err = md.Profile(); err != nil {
		slog.Warn("ignoring unusable image color profile", "path", path, "err", err)
		p = nil
	}
	img, _, err := image.Decode(stream)
	if err != nil {
		if p != nil {
			p.Close()
		}
		return nil, nil, err
	}
	if p == nil {
		slog.Info("image has no color profile, assuming sRGB", "path", path)
		p = cms.CreateSRgb()
	}
	return p, img, nil
}

func run(o *options, args []string) (err error) {
	if o.version {
		fmt.Println("cms", cms.Version)
		return nil
	}
	cfg := manager.DefaultConfig()
	if o.config != "" {
		if cfg, err = manager.LoadConfig(o.config); err != nil {
			return err
		}
	}
	cfg.Watch = false
	m, err := manager.New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	if o.list {
		for _, p := range m.Profiles() {
			fmt.Println(p.ProductName(), "\t", p.ProductDescription())
		}
		return nil
	}
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: cmsdemo [options] input-file [output-file]")
	}
	intent, err := intent_by_name(o.intent)
	if err != nil {
		return err
	}
	dest, err := destination(m, o.to)
	if err != nil {
		return err
	}
	src, img, err := source_profile(args[0])
	if err != nil {
		return err
	}
	defer src.Close()
	slog.Info("converting", "from", src.String(), "to", dest.String(), "intent", intent)

	if o.adjusting() {
		// the adjustments are defined in sRGB
		if src != cms.CreateSRgb() {
			if img, err = convert.ToProfile(img, src, cms.CreateSRgb(), intent, 0); err != nil {
				return err
			}
			src = cms.CreateSRgb()
		}
		if img, err = convert.ColorAdjust(img, o.brightness, o.contrast, o.hue, o.saturation, o.src_temp, o.dest_temp); err != nil {
			return err
		}
	}
	if img, err = convert.ToProfile(img, src, dest, intent, 0); err != nil {
		return err
	}

	output_file := args[0] + ".png"
	if len(args) == 2 {
		output_file = args[1]
	}
	out, err := os.OpenFile(output_file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if err = png.Encode(out, img); err == nil {
		fmt.Println("PNG saved to:", output_file)
	}
	return err
}

func main() {
	var o options
	flag.StringVar(&o.config, "config", "", "TOML or YAML color management config file")
	flag.StringVar(&o.to, "to", "sRGB", "destination profile: a product name, display or output")
	flag.StringVar(&o.intent, "intent", "perceptual", "rendering intent")
	flag.Float64Var(&o.brightness, "brightness", 0, "brightness, applied as a gamma of 10^(-brightness/100) on L*")
	flag.Float64Var(&o.contrast, "contrast", 0, "contrast change in percent")
	flag.Float64Var(&o.hue, "hue", 0, "hue rotation in degrees")
	flag.Float64Var(&o.saturation, "saturation", 0, "saturation change in percent")
	flag.IntVar(&o.src_temp, "src-temp", 6500, "white point temperature of the image in K")
	flag.IntVar(&o.dest_temp, "dest-temp", 6500, "white point temperature to adjust to in K")
	flag.BoolVar(&o.list, "list", false, "list the known RGB profiles and exit")
	flag.BoolVar(&o.version, "version", false, "print the library version and exit")
	flag.Parse()
	if err := run(&o, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
