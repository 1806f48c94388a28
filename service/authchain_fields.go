package service

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"

	"github.com/layer-3/linker/core"
)

var authChainFieldRe = regexp.MustCompile(`^authChain\[(\d+)\]\[(\w+)\]$`)

// AuthChainFromFields rebuilds an AuthChain from multipart fields named
// authChain[<index>][<property>], ordered by index. A single "authChain"
// field holding a JSON array is accepted as well. It returns false when the
// fields carry no auth chain at all.
func AuthChainFromFields(fields map[string]string) (core.AuthChain, bool) {
	links := make(map[int]*core.AuthLink)

	for key, value := range fields {
		match := authChainFieldRe.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		link, ok := links[index]
		if !ok {
			link = &core.AuthLink{}
			links[index] = link
		}
		switch match[2] {
		case "type":
			link.Type = core.AuthLinkType(value)
		case "payload":
			link.Payload = value
		case "signature":
			link.Signature = value
		}
	}

	if len(links) == 0 {
		return authChainFromJSON(fields["authChain"])
	}

	indices := make([]int, 0, len(links))
	for index := range links {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	chain := make(core.AuthChain, 0, len(indices))
	for _, index := range indices {
		chain = append(chain, *links[index])
	}
	return chain, true
}

func authChainFromJSON(value string) (core.AuthChain, bool) {
	if value == "" {
		return nil, false
	}
	var chain core.AuthChain
	if err := json.Unmarshal([]byte(value), &chain); err != nil || len(chain) == 0 {
		return nil, false
	}
	return chain, true
}
