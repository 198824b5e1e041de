package main

import (
	"flag"
	"log"

	"github.com/mogaika/fbxdoc/config"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/web"
)

func main() {
	var addr, cfgPath, encoding string
	flag.StringVar(&addr, "i", "", "Address of server, overrides config")
	flag.StringVar(&cfgPath, "config", "fbxdoc.yaml", "Path to config file")
	flag.StringVar(&encoding, "encoding", "", "Code page for names that are not utf-8, overrides config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if encoding != "" {
		cfg.Convert.Encoding = encoding
	}
	if err := config.SetEncoding(cfg.Convert.Encoding); err != nil {
		log.Fatal(err)
	}

	if err := logger.InitWithFileConfig(cfg.Log.Level, cfg.Log.FileConfig(), true); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := web.StartServer(cfg.Server.Addr, cfg); err != nil {
		logger.Sugar.Fatal(err)
	}
}
