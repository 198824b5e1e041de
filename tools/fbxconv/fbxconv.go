package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/config"
	"github.com/mogaika/fbxdoc/convert"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/utils"
)

func main() {
	var in, out, format, cfgPath string
	var dump, watch bool
	var rate float64
	flag.StringVar(&in, "in", "", "Input .fbx, .json or .yaml file")
	flag.StringVar(&out, "out", "", "Output file, derived from -in when empty")
	flag.StringVar(&format, "format", "", "Export format: binary, ascii, gltf or glb")
	flag.StringVar(&cfgPath, "config", "fbxconv.yaml", "Path to config file")
	flag.Float64Var(&rate, "rate", 0, "Animation resample rate override")
	flag.BoolVar(&dump, "dump", false, "Print the loaded document instead of converting")
	flag.BoolVar(&watch, "watch", false, "Convert again every time the input changes")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Log.Level, cfg.Log.FileConfig(), true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("fbxconv")

	if in == "" {
		flag.PrintDefaults()
		return
	}
	if err := config.SetEncoding(cfg.Convert.Encoding); err != nil {
		log.Fatal("Bad encoding", zap.Error(err))
	}
	if format == "" {
		format = cfg.Convert.Format
	}
	f, err := convert.ParseFormat(format)
	if err != nil {
		log.Fatal("Bad format", zap.Error(err))
	}
	if rate <= 0 {
		rate = cfg.Convert.ResampleRate
	}

	job := convert.Job{
		In:  in,
		Out: out,
		Import: convert.ImportOptions{
			ResampleRate: rate,
			Charmap:      config.GetEncoding(),
		},
		Export: convert.ExportOptions{
			Format:  f,
			Version: cfg.Convert.Version,
			Creator: cfg.Convert.Creator,
		},
	}

	if dump {
		doc, err := job.Document()
		if err != nil {
			log.Fatal("Failed to load", zap.Error(err))
		}
		utils.Dump(doc)
		return
	}

	written, err := job.Run()
	if err != nil {
		log.Error("Conversion failed", zap.Error(err))
		if !watch {
			os.Exit(1)
		}
	} else {
		log.Info("Written", zap.String("path", written))
	}

	if watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := convert.Watch(ctx, job, nil); err != nil {
			log.Fatal("Watch failed", zap.Error(err))
		}
	}
}
