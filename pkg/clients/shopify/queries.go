package shopify

// MediaImageQuery resolves a node id as a MediaImage
const MediaImageQuery = `
query mediaImage($id: ID!) {
  node(id: $id) {
    __typename
    ... on MediaImage {
      image {
        url
      }
    }
  }
}
`

// GenericFileQuery resolves a node id as a GenericFile
const GenericFileQuery = `
query genericFile($id: ID!) {
  node(id: $id) {
    __typename
    ... on GenericFile {
      url
    }
  }
}
`
