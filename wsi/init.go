// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

func init() {
	initEbiten()
}
