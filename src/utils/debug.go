package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Debugging
const debug = false

func DPrintf(format string, a ...interface{}) (n int, err error) {
	if debug {
		log.Printf(format, a...)
	}
	return
}

type LogTopic string

const (
	// UThreads
	DSched     LogTopic = "SCHD"
	DSpawn     LogTopic = "SPWN"
	DSleep     LogTopic = "SLEP"
	DBlock     LogTopic = "BLCK"
	DTerminate LogTopic = "TERM"
	// Virtual memory
	DWalk    LogTopic = "WALK"
	DEvict   LogTopic = "EVCT"
	DRestore LogTopic = "RSTR"
	DFrame   LogTopic = "FRAM"
	// MapReduce
	DMap     LogTopic = "MAPP"
	DShuffle LogTopic = "SHUF"
	DReduce  LogTopic = "REDU"
	DStage   LogTopic = "STAG"
	DWorker  LogTopic = "WRKR"
	// General
	DTest  LogTopic = "TEST"
	DTimer LogTopic = "TIMR"
	DWarn  LogTopic = "WARN"
	DError LogTopic = "ERRO"
	DInfo  LogTopic = "INFO"
)

// Retrieve the verbosity level from an environment variable
func getVerbosity() int {
	v := os.Getenv("VERBOSE")
	level := 0
	if v != "" {
		var err error
		level, err = strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid verbosity %v", v)
		}
	}
	return level
}

var debugStart time.Time
var debugVerbosity int

func init() {
	debugVerbosity = getVerbosity()
	debugStart = time.Now()

	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
}

func Debug(topic LogTopic, format string, a ...interface{}) {
	if debugVerbosity >= 1 {
		time := time.Since(debugStart).Microseconds()
		time /= 100
		prefix := fmt.Sprintf("%06d %v ", time, string(topic))
		format = prefix + format
		log.Printf(format, a...)
	}
}
