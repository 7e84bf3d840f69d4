package protocol

import jsoniter "github.com/json-iterator/go"

// json is a drop-in replacement for encoding/json with better performance
var json = jsoniter.ConfigCompatibleWithStandardLibrary
