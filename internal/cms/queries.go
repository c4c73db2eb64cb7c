package cms

// GraphQL documents sent to WPGraphQL. Fragments are appended to the
// operations that use them.

const postSummaryFragment = `
fragment PostSummaryFields on Post {
  id
  databaseId
  slug
  uri
  title
  dateGmt
  modifiedGmt
  excerpt
  commentCount
  author { node { name slug uri } }
  categories { nodes { name slug uri } }
  featuredImage { node { sourceUrl altText } }
}`

const postFragment = `
fragment PostFields on Post {
  id
  databaseId
  slug
  uri
  title
  dateGmt
  modifiedGmt
  excerpt
  content
  commentCount
  commentStatus
  author { node { name slug uri description avatar { url } } }
  categories { nodes { name slug uri } }
  tags { nodes { name slug uri } }
  featuredImage { node { sourceUrl altText } }
}`

const listPostsQuery = `
query ListPosts($first: Int!, $after: String, $where: RootQueryToPostConnectionWhereArgs) {
  posts(first: $first, after: $after, where: $where) {
    pageInfo { hasNextPage endCursor }
    nodes { ...PostSummaryFields }
  }
}` + postSummaryFragment

const postQuery = `
query Post($id: ID!, $idType: PostIdType!) {
  post(id: $id, idType: $idType) { ...PostFields }
}` + postFragment

const pageQuery = `
query Page($id: ID!) {
  page(id: $id, idType: URI) {
    id
    databaseId
    slug
    uri
    title
    content
    modifiedGmt
  }
}`

const categoryQuery = `
query Category($id: ID!) {
  category(id: $id, idType: SLUG) { name slug uri description count }
}`

const tagQuery = `
query Tag($id: ID!) {
  tag(id: $id, idType: SLUG) { name slug uri description count }
}`

const authorQuery = `
query Author($id: ID!) {
  user(id: $id, idType: SLUG) { name slug uri description avatar { url } }
}`

const nodeByURIQuery = `
query NodeByUri($uri: String!) {
  nodeByUri(uri: $uri) {
    __typename
    uri
    ... on Post { databaseId slug }
    ... on Page { databaseId slug }
    ... on Category { databaseId slug }
    ... on Tag { databaseId slug }
    ... on User { databaseId slug }
  }
}`

const commentsQuery = `
query Comments($id: ID!, $first: Int!, $after: String) {
  post(id: $id, idType: DATABASE_ID) {
    comments(first: $first, after: $after, where: { order: ASC, orderby: COMMENT_DATE }) {
      pageInfo { hasNextPage endCursor }
      nodes {
        databaseId
        parentDatabaseId
        dateGmt
        content
        author { node { name url } }
      }
    }
  }
}`

const createCommentMutation = `
mutation CreateComment($input: CreateCommentInput!) {
  createComment(input: $input) {
    success
    comment { databaseId approved }
  }
}`

const menuQuery = `
query Menu($location: MenuLocationEnum!) {
  menuItems(first: 50, where: { location: $location, parentDatabaseId: 0 }) {
    nodes { label uri }
  }
}`

const settingsQuery = `
query Settings {
  generalSettings { title description url language }
}`
