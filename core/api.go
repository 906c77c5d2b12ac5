package core

import (
	"fmt"
	"sort"
	"sync"

	gorilla "github.com/gorilla/mux"
)

var (
	apis   = make(map[string]API)
	apisMu sync.RWMutex
)

type API interface {
	Name() string
	Configure(router *gorilla.Router) error
}

type APIInit interface {
	Init(ctx Context) ([]ContextBuilderOption, error)
}

func RegisterAPI(id string, api API) {
	apisMu.Lock()
	defer apisMu.Unlock()

	if _, ok := apis[id]; ok {
		panic(fmt.Sprintf("api already registered: %s", id))
	}

	apis[id] = api
}

func GetAPI(id string) API {
	apisMu.RLock()
	defer apisMu.RUnlock()

	api, ok := apis[id]

	if !ok {
		return nil
	}

	return api
}

func GetAPIs() map[string]API {
	apisMu.RLock()
	defer apisMu.RUnlock()

	return apis
}

func GetAPIList() []API {
	apisMu.RLock()
	defer apisMu.RUnlock()

	keys := make([]string, 0, len(apis))
	for k := range apis {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var apiList []API
	for _, k := range keys {
		apiList = append(apiList, apis[k])
	}

	return apiList
}
