package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/rasterly/rasterly/pkg/raster"
)

const version = "0.3.1"

func usage() {
	fmt.Println("Usage: rasterly [options] <input>")
	fmt.Println("       rasterly update")
	fmt.Println("Options:")
	fmt.Println("  -o <path>        output file (default: out.<format>)")
	fmt.Println("  -format <name>   jpeg, png or webp (default: png)")
	fmt.Println("  -quality <n>     lossy quality 1-100")
	fmt.Println("  -strip           drop embedded metadata")
	fmt.Println("  -resize WxH      resize, aspect ratio preserved")
	fmt.Println("  -exact           resize to exact dimensions")
	fmt.Println("  -crop X,Y,WxH    crop to a sub-region")
	fmt.Println("  -pad WxH         pad canvas, content centred")
	fmt.Println("  -fill <hex>      pad fill color, #rrggbb or #rrggbbaa")
	fmt.Println("  -flatten <hex>   flatten alpha against a background color")
	fmt.Println("  -trim <n>        auto-crop borders within threshold n")
	fmt.Println("  -info            print image info and exit")
}

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "update" {
		if err := runUpdate(version); err != nil {
			fmt.Fprintf(os.Stderr, "update failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var (
		outPath   = flag.String("o", "", "output file")
		formatStr = flag.String("format", "png", "output format")
		quality   = flag.Int("quality", 0, "lossy quality 1-100")
		strip     = flag.Bool("strip", false, "drop embedded metadata")
		resizeStr = flag.String("resize", "", "resize WxH")
		exact     = flag.Bool("exact", false, "resize to exact dimensions")
		cropStr   = flag.String("crop", "", "crop X,Y,WxH")
		padStr    = flag.String("pad", "", "pad WxH")
		fillStr   = flag.String("fill", "#ffffff", "pad fill color")
		flatStr   = flag.String("flatten", "", "flatten background color")
		trimVal   = flag.Float64("trim", -1, "trim threshold")
		info      = flag.Bool("info", false, "print image info and exit")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	raster.Configure(raster.ConfigFromEnv())

	buf, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	img, err := raster.Open(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer img.Release()

	if *info {
		fmt.Println(img)
		return
	}

	if *resizeStr != "" {
		w, h, err := parseDims(*resizeStr)
		if err == nil {
			err = img.Resize(w, h, *exact)
		}
		exitOn("resize", err)
	}
	if *cropStr != "" {
		r, err := parseCrop(*cropStr)
		if err == nil {
			err = img.Crop(r)
		}
		exitOn("crop", err)
	}
	if *trimVal >= 0 {
		box, err := img.FindTrim(*trimVal, raster.NewPixelPacket(255, 255, 255))
		if err == nil && !box.Empty() {
			err = img.Crop(box)
		}
		exitOn("trim", err)
	}
	if *padStr != "" {
		w, h, err := parseDims(*padStr)
		var fill raster.PixelPacket
		if err == nil {
			fill, err = parseHexPixel(*fillStr)
		}
		if err == nil {
			err = img.Pad(w, h, fill, raster.GravityCentre)
		}
		exitOn("pad", err)
	}
	if *flatStr != "" {
		bg, err := parseHexPixel(*flatStr)
		if err == nil {
			err = img.Flatten(bg)
		}
		exitOn("flatten", err)
	}

	format, err := parseFormat(*formatStr)
	exitOn("format", err)
	out, err := img.WriteToArray(format, *quality, *strip)
	exitOn("encode", err)

	path := *outPath
	if path == "" {
		path = "out." + format.String()
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes, %dx%d)\n", path, len(out), img.Width(), img.Height())

	if n := raster.LiveHandles(); n > 1 {
		raster.ReportLeaks(os.Stderr)
	}
}

func exitOn(op string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", op, err)
		os.Exit(1)
	}
}

func parseFormat(s string) (raster.Format, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return raster.FormatJPEG, nil
	case "png":
		return raster.FormatPNG, nil
	case "webp":
		return raster.FormatWebP, nil
	case "gif":
		return raster.FormatGIF, nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

func parseDims(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width: %w", err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height: %w", err)
	}
	return w, h, nil
}

func parseCrop(s string) (image.Rectangle, error) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return image.Rectangle{}, fmt.Errorf("expected X,Y,WxH, got %q", s)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid y: %w", err)
	}
	w, h, err := parseDims(parts[2])
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(x, y, x+w, y+h), nil
}

func parseHexPixel(s string) (raster.PixelPacket, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return raster.PixelPacket{}, fmt.Errorf("expected #rrggbb or #rrggbbaa, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return raster.PixelPacket{}, fmt.Errorf("invalid color: %w", err)
	}
	if len(s) == 6 {
		return raster.NewPixelPacket(float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)), nil
	}
	return raster.NewPixelPacketWithAlpha(
		float64(v>>24&0xff), float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)), nil
}
