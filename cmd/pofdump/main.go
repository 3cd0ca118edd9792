package main

import (
	"flag"
	"io/ioutil"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/portableobject/pof"
	"go.uber.org/zap"
)

var (
	decode  = flag.Bool("d", false, "also decode the value and dump it with spew")
	verbose = flag.Bool("v", false, "log events at debug level")
)

func process(fname string, b []byte, logger *zap.Logger) {
	dh := pof.NewDumpHandler(os.Stdout)
	dh.Log = logger

	if err := pof.NewParser(dh).Parse(b); err != nil {
		log.Fatalf("error processing %s: %s", fname, err)
	}

	if !*decode {
		return
	}

	v, err := pof.NewDecoder(nil).Unmarshal(b)
	if err != nil {
		log.Fatalf("error decoding %s: %s", fname, err)
	}
	spew.Dump(v)
}

func main() {
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatal(err)
		}
		defer logger.Sync()
		pof.SetLogger(logger)
	}

	if flag.NArg() == 0 {
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		process("stdin", b, logger)
		return
	}

	for _, arg := range flag.Args() {
		b, err := ioutil.ReadFile(arg)
		if err != nil {
			log.Fatal(err)
		}
		process(arg, b, logger)
	}
}
